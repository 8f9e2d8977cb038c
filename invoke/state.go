package invoke

import (
	"runtime"

	"go.uber.org/zap"
)

// ResultReady installs the producer for a reply that has arrived.
// Under the lock, if the invocation is still WAITING or CANCEL_REQ and
// has not been marked one-way, the producer is installed, the cursor
// is reset to 0 for the result pass, and the state becomes READY. If
// it has been marked one-way in the meantime, the reply is discarded
// immediately and the state moves straight to DISCARDED — a one-way
// invocation's eventual reply is never installed as READY, so a
// concurrent futureGet can never observe it and produce from it.
// Otherwise (already terminal) the producer is discarded outside the
// lock — this is what makes invariant 4 hold for late replies that
// arrive after cancellation or abandonment.
func (ctx *InvocationContext) ResultReady(producer ResultProducer) {
	ctx.mu.Lock()
	switch ctx.st {
	case stateWaiting, stateCancelReq:
		if ctx.async == asyncOneWay {
			ctx.st = stateDiscarded
			ctx.cond.Broadcast()
			ctx.mu.Unlock()
			metricsHook.observeTerminal("discarded", ctx.started)
			producer.Discard()
			return
		}
		ctx.resultProducer = producer
		ctx.cursor = 0
		ctx.st = stateReady
		ctx.cond.Broadcast()
		ctx.mu.Unlock()
		return
	}
	ctx.mu.Unlock()
	logger.Debug("discarding result for invocation no longer awaiting one",
		zap.String("method", ctx.invokedMethod.Name))
	producer.Discard()
}

// Cancelled reports that the transport honored a cancellation request.
// A no-op if the invocation already left {WAITING, CANCEL_REQ}.
func (ctx *InvocationContext) Cancelled() {
	ctx.mu.Lock()
	switch ctx.st {
	case stateWaiting, stateCancelReq:
		ctx.st = stateCancelled
		ctx.cond.Broadcast()
		ctx.mu.Unlock()
		metricsHook.observeTerminal("cancelled", ctx.started)
		return
	}
	ctx.mu.Unlock()
}

// Failed reports that the transport or remote side failed before
// producing a result. A no-op if the invocation already left
// {WAITING, CANCEL_REQ}.
func (ctx *InvocationContext) Failed(err error) {
	ctx.mu.Lock()
	switch ctx.st {
	case stateWaiting, stateCancelReq:
		ctx.st = stateFailed
		ctx.cachedErr = err
		ctx.cond.Broadcast()
		ctx.mu.Unlock()
		metricsHook.observeTerminal("failed", ctx.started)
		return
	}
	ctx.mu.Unlock()
}

// ProceedAsynchronously upgrades the invocation to asynchronous,
// waking any thread blocked in AwaitResponse so it returns ProceedAsync
// instead of the eventual result. Safe to call from any thread,
// including an interceptor running on the caller's own thread, and
// monotonic: a no-op once asyncState has already left SYNCHRONOUS.
func (ctx *InvocationContext) ProceedAsynchronously() {
	ctx.mu.Lock()
	if ctx.async == asyncSynchronous {
		ctx.async = asyncAsynchronous
		ctx.cond.Broadcast()
	}
	ctx.mu.Unlock()
}

// AwaitResponse blocks the caller thread until either a result is
// ready (in which case it drives the result pass and returns the
// resolved value), the invocation is upgraded to asynchronous (in
// which case it returns ProceedAsync), or the invocation is marked
// one-way (in which case it fails with OneWay). It must never be
// called while holding ctx's lock.
func (ctx *InvocationContext) AwaitResponse() (any, error) {
	ctx.mu.Lock()
	switch ctx.async {
	case asyncAsynchronous:
		ctx.mu.Unlock()
		return ProceedAsync, nil
	case asyncOneWay:
		ctx.mu.Unlock()
		return nil, newErr(OneWay, "one-way invocation")
	}
	for ctx.st == stateWaiting {
		ctx.cond.Wait()
		switch ctx.async {
		case asyncAsynchronous:
			ctx.mu.Unlock()
			return ProceedAsync, nil
		case asyncOneWay:
			ctx.mu.Unlock()
			return nil, newErr(OneWay, "one-way invocation")
		}
	}
	finalState := ctx.st
	cachedErr := ctx.cachedErr
	ctx.mu.Unlock()

	// Normally finalState is READY here (the expected outcome of the
	// wait); CANCELLED/FAILED are handled directly rather than falling
	// into GetResult(), which would otherwise report WrongPhase with no
	// installed producer and mask the real outcome.
	switch finalState {
	case stateCancelled:
		return nil, newErr(Cancelled, "request cancelled")
	case stateFailed:
		return nil, wrapErr(RemoteFailure, "remote invocation failed", cachedErr)
	default:
		return ctx.GetResult()
	}
}

// SetDiscardResult marks the invocation as fire-and-forget. If a
// result was already cached and consumed (DONE), the producer was
// already produced from and is left alone; the state simply becomes
// DISCARDED. If a result is waiting but not yet consumed (READY), the
// producer is discarded inline rather than left for the next getter to
// observe OneWay and for abandonment to release — the safer redesign
// the original design permits (spec §9 Open Question).
func (ctx *InvocationContext) SetDiscardResult() {
	ctx.mu.Lock()
	if ctx.async != asyncOneWay {
		ctx.async = asyncOneWay
		ctx.cond.Broadcast()
	}
	var toDiscard ResultProducer
	transitioned := false
	switch ctx.st {
	case stateDone:
		// Already counted as "done" when it reached DONE.
		ctx.st = stateDiscarded
		ctx.cond.Broadcast()
	case stateReady:
		ctx.st = stateDiscarded
		toDiscard = ctx.resultProducer
		ctx.cond.Broadcast()
		transitioned = true
	}
	ctx.mu.Unlock()
	if transitioned {
		metricsHook.observeTerminal("discarded", ctx.started)
	}
	if toDiscard != nil {
		toDiscard.Discard()
	}
}

// Abandon releases a producer that landed (READY) but was never
// consumed and never explicitly discarded. Go has no reliable
// unreachability hook equivalent to a Java finalizer; callers that
// cannot guarantee every FutureHandle is consumed, cancelled, or
// discarded must call this explicitly (see FutureHandle.Close). A
// best-effort runtime.SetFinalizer backstop is registered in
// NewInvocationContext for the common case where nothing else does.
func (ctx *InvocationContext) Abandon() {
	ctx.mu.Lock()
	var producer ResultProducer
	switch ctx.st {
	case stateReady:
		producer = ctx.resultProducer
	default:
		ctx.mu.Unlock()
		return
	}
	ctx.mu.Unlock()
	if producer != nil {
		logger.Warn("abandoning invocation with an unconsumed result",
			zap.String("method", ctx.invokedMethod.Name))
		producer.Discard()
	}
}

func registerAbandonFinalizer(ctx *InvocationContext) {
	runtime.SetFinalizer(ctx, func(c *InvocationContext) { c.Abandon() })
}
