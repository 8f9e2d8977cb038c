package gobrpc

import (
	"errors"
	"io"
	"net"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"invokex/invoke"
)

// pendingCall is the client-side bookkeeping for one in-flight
// invocation: the arguments already on the wire, and a reply holder the
// receive loop decodes into before handing the context a producer.
type pendingCall struct {
	ctx     *invoke.InvocationContext
	reply   any
	replied bool // guards against a late Cancelled/Failed racing a reply
}

// Connection is a single gob-codec connection used as an invoke.Receiver:
// ProcessInvocation writes the request and registers a pendingCall;
// a background receive loop decodes replies and resolves contexts via
// ResultReady/Failed. One Connection serves many concurrent
// invocations, matching rpcx.Client's one-socket-many-calls shape.
type Connection struct {
	codec ClientCodec

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]*pendingCall
	closed  bool
}

var _ invoke.Receiver = (*Connection)(nil)

// Dial opens a gob-codec connection to address and starts its receive
// loop.
func Dial(network, address string) (*Connection, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, err
	}
	return NewConnection(conn), nil
}

// NewConnection wraps an already-established conn.
func NewConnection(conn io.ReadWriteCloser) *Connection {
	c := &Connection{
		codec:   NewClientCodec(conn),
		pending: make(map[uint64]*pendingCall),
		seq:     1,
	}
	go c.receiveLoop()
	return c
}

// ProcessInvocation sends the request header plus parameters and
// registers the pending call under a fresh sequence number, tucking it
// into rcvCtx.Data so CancelInvocation can find it again.
func (c *Connection) ProcessInvocation(ctx *invoke.InvocationContext, rcvCtx *invoke.ReceiverInvocationContext) error {
	serviceMethod := viewServiceMethod(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("gobrpc: connection is closed")
	}
	seq := c.seq
	c.seq++
	pc := &pendingCall{ctx: ctx}
	c.pending[seq] = pc
	c.mu.Unlock()

	rcvCtx.Data = seq

	req := &Request{ServiceMethod: serviceMethod, Seq: seq}
	params := ctx.GetParameters()
	var argv any
	if len(params) == 1 {
		argv = params[0]
	} else {
		argv = params
	}

	if err := c.codec.WriteRequest(req, argv); err != nil {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return err
	}
	return nil
}

// CancelInvocation removes a still-pending call so the receive loop
// drops its eventual reply rather than resolving it, and reports the
// invocation cancelled via ctx.Cancelled. Returns false if the reply
// already arrived (or is arriving concurrently).
func (c *Connection) CancelInvocation(ctx *invoke.InvocationContext, rcvCtx *invoke.ReceiverInvocationContext) bool {
	seq, ok := rcvCtx.Data.(uint64)
	if !ok {
		return false
	}

	c.mu.Lock()
	pc, found := c.pending[seq]
	if found && !pc.replied {
		delete(c.pending, seq)
	} else {
		found = false
	}
	c.mu.Unlock()
	if found {
		ctx.Cancelled()
	}
	return found
}

func (c *Connection) receiveLoop() {
	var err error
	for err == nil {
		resp := new(Response)
		if err = c.codec.ReadResponseHeader(resp); err != nil {
			break
		}

		c.mu.Lock()
		pc, ok := c.pending[resp.Seq]
		if ok {
			delete(c.pending, resp.Seq)
			pc.replied = true
		}
		c.mu.Unlock()

		if !ok {
			_ = c.codec.ReadResponseBody(nil)
			continue
		}

		if resp.Error != "" {
			_ = c.codec.ReadResponseBody(nil)
			pc.ctx.Failed(errors.New(resp.Error))
			continue
		}

		// Decode into the invoked method's *reply type: gob cannot decode
		// a concrete value into a bare interface.
		if mt := pc.ctx.GetInvokedMethod().Type; mt != nil && mt.NumIn() == 3 && mt.In(2).Kind() == reflect.Pointer {
			pc.reply = reflect.New(mt.In(2).Elem()).Interface()
		} else {
			pc.reply = new(any)
		}
		if err := c.codec.ReadResponseBody(pc.reply); err != nil {
			pc.ctx.Failed(err)
			continue
		}
		pc.ctx.ResultReady(&decodedProducer{value: reflect.ValueOf(pc.reply).Elem().Interface()})
	}

	logger.Debug("receive loop exiting", zap.Error(err))
	c.terminatePending(err)
}

func (c *Connection) terminatePending(cause error) {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint64]*pendingCall)
	c.mu.Unlock()

	for _, pc := range pending {
		pc.ctx.Failed(cause)
	}
}

// Close shuts down the connection's codec, which makes the receive
// loop's pending read fail and fails any remaining pending calls.
func (c *Connection) Close() error {
	return c.codec.Close()
}

// viewServiceMethod derives a "Service.Method" wire name from the
// invoked view type's name plus the invoked method's name, the same
// "T.Method" convention the server side's findService expects.
func viewServiceMethod(ctx *invoke.InvocationContext) string {
	viewName := "Service"
	if vc := ctx.ViewClass(); vc != nil {
		viewName = vc.Name()
	}
	return viewName + "." + ctx.GetInvokedMethod().Name
}

// decodedProducer is a ResultProducer over a value the receive loop has
// already decoded off the wire; Produce and Discard are both trivial
// because there is no transport resource left to release by the time
// this producer is installed.
type decodedProducer struct {
	value any
}

var _ invoke.ResultProducer = (*decodedProducer)(nil)

func (p *decodedProducer) Produce() (any, error) { return p.value, nil }
func (p *decodedProducer) Discard()              {}
