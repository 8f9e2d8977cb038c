// Package gobrpc is a concrete Receiver/ResultProducer pair plus the
// server-side dispatcher they talk to: a reference transport for the
// invocation core, analogous to the role rpcx's client/server pair
// plays for the teacher's own Call/Client pipeline, but wired to
// invoke.InvocationContext's state machine instead of a Call.Done
// channel.
package gobrpc

import (
	"reflect"
	"time"
)

// Request is the wire header sent for one invocation.
type Request struct {
	ServiceMethod string // "Service.Method"
	Seq           uint64
	Timeout       time.Duration

	// Populated server-side only, never put on the wire.
	argv    reflect.Value
	replyv  reflect.Value
	mtype   *methodType
	service *service
}

// Response is the wire header returned for one invocation.
type Response struct {
	ServiceMethod string
	Seq           uint64
	Error         string
}
