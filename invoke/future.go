package invoke

import (
	"runtime"
	"time"
)

// FutureHandle is the caller-visible completion handle bound 1:1 to an
// InvocationContext. All operations take/release the context lock for
// only the critical section noted; no Receiver or ResultProducer call
// is ever made while it is held.
type FutureHandle struct {
	ctx *InvocationContext
}

// IsDone reports whether the invocation has left {WAITING, CANCEL_REQ}.
func (f *FutureHandle) IsDone() bool {
	ctx := f.ctx
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.st != stateWaiting && ctx.st != stateCancelReq
}

// IsCancelled reports whether the invocation ended in CANCELLED. A
// result that wins the race against a pending cancellation (§4.2,
// CANCEL_REQ -> READY) means this returns false even though Cancel was
// called.
func (f *FutureHandle) IsCancelled() bool {
	ctx := f.ctx
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.st == stateCancelled
}

// Cancel requests cancellation of a still-pending invocation. It only
// requests: whether the transport honors it, and whether a result
// still arrives, are orthogonal. A losing race against ResultReady is
// resolved by the CANCEL_REQ -> READY transition, not here.
func (f *FutureHandle) Cancel(mayInterruptIfRunning bool) bool {
	ctx := f.ctx
	ctx.mu.Lock()
	if ctx.st != stateWaiting {
		ctx.mu.Unlock()
		return false
	}
	ctx.st = stateCancelReq
	ctx.mu.Unlock()

	rcvCtx := ctx.receiverBinding
	if rcvCtx == nil || rcvCtx.Receiver == nil {
		return false
	}
	return rcvCtx.Receiver.CancelInvocation(ctx, rcvCtx)
}

// Get blocks until a result, failure, or cancellation is available,
// and returns it.
func (f *FutureHandle) Get() (any, error) {
	ctx := f.ctx
	ctx.mu.Lock()
	for ctx.st == stateWaiting || ctx.st == stateCancelReq || ctx.st == stateConsuming {
		ctx.cond.Wait()
	}
	return ctx.finishGetLocked()
}

// GetTimeout blocks until a result is available or timeout elapses,
// using a monotonic deadline computed once at entry. Each wait lasts
// until the deadline, but never less than one millisecond, and the
// deadline is re-checked after every wake.
func (f *FutureHandle) GetTimeout(timeout time.Duration) (any, error) {
	ctx := f.ctx
	ctx.mu.Lock()
	if ctx.st == stateWaiting || ctx.st == stateCancelReq || ctx.st == stateConsuming {
		deadline := time.Now().Add(timeout)
		for ctx.st == stateWaiting || ctx.st == stateCancelReq || ctx.st == stateConsuming {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				ctx.mu.Unlock()
				return nil, newErr(Timeout, "timed get exceeded its deadline")
			}
			wait := remaining
			if wait < time.Millisecond {
				wait = time.Millisecond
			}
			ctx.condWaitTimeout(wait)
		}
	}
	return ctx.finishGetLocked()
}

// Close releases a READY-but-unconsumed result's transport resources
// immediately, for callers that cannot rely on the best-effort
// finalizer backstop. Safe to call on an already-terminal handle.
func (f *FutureHandle) Close() {
	runtime.SetFinalizer(f.ctx, nil)
	f.ctx.Abandon()
}

// condWaitTimeout waits on ctx.cond for at most d, assuming ctx.mu is
// held by the caller. Go's sync.Cond has no built-in timeout, so a
// timer is armed to broadcast if nothing else wakes the waiter first.
func (ctx *InvocationContext) condWaitTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		ctx.mu.Lock()
		ctx.cond.Broadcast()
		ctx.mu.Unlock()
	})
	ctx.cond.Wait()
	timer.Stop()
}

// finishGetLocked implements the state branch common to Get and
// GetTimeout once the wait loop has exited. ctx.mu must be held on
// entry; every branch releases it before returning.
func (ctx *InvocationContext) finishGetLocked() (any, error) {
	switch ctx.st {
	case stateReady:
		if ctx.async == asyncOneWay {
			// Belt and suspenders: ResultReady never lets a one-way
			// invocation reach READY, but if that ever changes, a
			// getter must still throw OneWay rather than produce.
			ctx.st = stateDiscarded
			producer := ctx.resultProducer
			ctx.cond.Broadcast()
			ctx.mu.Unlock()
			metricsHook.observeTerminal("discarded", ctx.started)
			producer.Discard()
			return nil, newErr(OneWay, "one-way invocation")
		}

		// Change state to consuming, but don't notify: nobody but us
		// can act on it. We notify after the result is consumed, so a
		// second getter racing in waits rather than racing on the
		// producer itself.
		ctx.st = stateConsuming
		producer := ctx.resultProducer
		ctx.mu.Unlock()

		result, err := producer.Produce()
		if err != nil {
			ctx.mu.Lock()
			ctx.st = stateFailed
			ctx.cachedErr = err
			ctx.cond.Broadcast()
			ctx.mu.Unlock()
			metricsHook.observeTerminal("failed", ctx.started)
			return nil, wrapErr(RemoteFailure, "remote invocation failed", err)
		}

		ctx.mu.Lock()
		ctx.st = stateDone
		ctx.cachedResult = result
		ctx.cond.Broadcast()
		ctx.mu.Unlock()
		metricsHook.observeTerminal("done", ctx.started)
		return result, nil

	case stateFailed:
		err := ctx.cachedErr
		ctx.mu.Unlock()
		return nil, wrapErr(RemoteFailure, "remote invocation failed", err)

	case stateCancelled:
		ctx.mu.Unlock()
		return nil, newErr(Cancelled, "request cancelled")

	case stateDone:
		result := ctx.cachedResult
		ctx.mu.Unlock()
		return result, nil

	case stateDiscarded:
		ctx.mu.Unlock()
		return nil, newErr(OneWay, "one-way invocation")

	default:
		ctx.mu.Unlock()
		panic("invoke: FutureHandle in an impossible state")
	}
}
