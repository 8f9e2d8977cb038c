// Package interceptor holds a handful of concrete invoke.Interceptor
// implementations that exercise the pipeline end to end: a logging
// pass-through, an async upgrader, and a weak-affinity depositor.
package interceptor

import (
	"time"

	"go.uber.org/zap"

	"invokex/invoke"
)

// Logging logs each invocation's dispatch and, on the way back out,
// its outcome and latency. It never short-circuits the chain.
type Logging struct {
	Logger *zap.Logger
}

var _ invoke.Interceptor = (*Logging)(nil)

func (l *Logging) log() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func (l *Logging) HandleInvocation(ctx *invoke.InvocationContext) error {
	l.log().Debug("sending request",
		zap.String("method", ctx.GetInvokedMethod().Name))
	return ctx.SendRequest()
}

func (l *Logging) HandleInvocationResult(ctx *invoke.InvocationContext) (any, error) {
	start := time.Now()
	result, err := ctx.GetResult()
	if err != nil {
		l.log().Warn("invocation failed",
			zap.String("method", ctx.GetInvokedMethod().Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	l.log().Debug("invocation succeeded",
		zap.String("method", ctx.GetInvokedMethod().Name),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
