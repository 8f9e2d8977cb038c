package invoke

// WeakAffinityKey is the attachment key a lower interceptor deposits a
// routing hint under; the outermost result-pass call reads it exactly
// once per successful invocation and applies it to the proxy handler.
var WeakAffinityKey = NewAttachmentKey[any]("invoke.weak-affinity")

// SendRequest advances the request pass. Precondition: RequestDone()
// is false. On return, the request has been handed to the next stage
// (an interceptor or, at the end of the chain, the bound Receiver). On
// throw, RequestDone becomes true and the error propagates to the
// caller, who must treat the invocation as failed.
func (ctx *InvocationContext) SendRequest() error {
	if ctx.requestDone {
		return newErr(WrongPhase, "sendRequest() called during wrong phase")
	}
	idx := ctx.cursor
	ctx.cursor++
	chain := ctx.interceptorChain
	defer func() { ctx.requestDone = true }()

	if idx == len(chain) {
		rcvCtx := ctx.receiverBinding
		if rcvCtx == nil || rcvCtx.Receiver == nil {
			return newErr(NoReceiverBound, "request pass reached chain end with no receiver bound")
		}
		return rcvCtx.Receiver.ProcessInvocation(ctx, rcvCtx)
	}
	return chain[idx].HandleInvocation(ctx)
}

// RequestDone reports whether the request pass has completed (exactly
// once, after the terminal call returns or throws).
func (ctx *InvocationContext) RequestDone() bool { return ctx.requestDone }

// GetResult advances the result pass. Precondition: a ResultProducer
// is installed and ResultDone() is false; may not be called from the
// request pass. Returns the domain result, or the producer's failure
// unchanged. The outermost call (cursor was 0 on entry) applies any
// WeakAffinityKey attachment to the proxy handler after the whole
// pass has returned, and only if the pass returned no error.
func (ctx *InvocationContext) GetResult() (result any, err error) {
	ctx.mu.Lock()
	producer := ctx.resultProducer
	ctx.mu.Unlock()

	if ctx.resultDone || producer == nil {
		return nil, newErr(WrongPhase, "getResult() called during wrong phase")
	}

	idx := ctx.cursor
	ctx.cursor++
	chain := ctx.interceptorChain
	first := idx == 0

	defer func() {
		ctx.resultDone = true
		if first && err == nil {
			if affinity, ok := GetAttachment(&ctx.Attachable, WeakAffinityKey); ok && affinity != nil {
				if ctx.proxyHandler != nil {
					ctx.proxyHandler.SetWeakAffinity(affinity)
				}
			}
		}
	}()

	if idx == len(chain) {
		return producer.Produce()
	}
	return chain[idx].HandleInvocationResult(ctx)
}

// ResultDone reports whether the result pass has completed (exactly
// once, set from within the interceptor-0 result-pass call).
func (ctx *InvocationContext) ResultDone() bool { return ctx.resultDone }

// DiscardResult delegates to the installed ResultProducer's Discard.
// Idempotency is the Receiver's concern; the core's state-machine
// invariants (§3 invariant 4) ensure it is called at most once per
// producer.
func (ctx *InvocationContext) DiscardResult() error {
	ctx.mu.Lock()
	producer := ctx.resultProducer
	ctx.mu.Unlock()

	if producer == nil {
		return newErr(WrongPhase, "discardResult() called during request phase")
	}
	producer.Discard()
	return nil
}
