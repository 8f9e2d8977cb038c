package invoke

// Interceptor is a single stage of the chain, called twice per
// invocation: once during the request pass, once during the result
// pass. Implementations are stateless with respect to a single
// InvocationContext; the chain's progress is carried by the context's
// cursor, not by the interceptor.
type Interceptor interface {
	// HandleInvocation is called during the request pass. It must call
	// ctx.SendRequest() exactly once unless it intentionally
	// short-circuits the chain, in which case it is responsible for
	// supplying a result via a mechanism outside this package.
	HandleInvocation(ctx *InvocationContext) error

	// HandleInvocationResult is called during the result pass. It
	// must call ctx.GetResult() exactly once to proceed, or
	// ctx.DiscardResult() to drop the result without reading it.
	HandleInvocationResult(ctx *InvocationContext) (any, error)
}

// Receiver is the transport adapter bound to an invocation. It accepts
// a prepared InvocationContext plus a ReceiverInvocationContext and
// schedules the wire exchange. It must eventually call exactly one of
// ctx.ResultReady, ctx.Failed, or ctx.Cancelled.
type Receiver interface {
	// ProcessInvocation schedules the exchange. It may return before
	// the exchange completes; completion is signalled later via one of
	// ctx.ResultReady/ctx.Failed/ctx.Cancelled, from any thread.
	ProcessInvocation(ctx *InvocationContext, rcvCtx *ReceiverInvocationContext) error

	// CancelInvocation requests cancellation of a pending invocation
	// and reports whether cancellation was effected. A false result
	// does not imply a result is still coming; it only means this
	// receiver could not stop the exchange.
	CancelInvocation(ctx *InvocationContext, rcvCtx *ReceiverInvocationContext) bool
}

// ReceiverInvocationContext carries the receiver bound to an
// invocation plus whatever private correlation state that receiver
// needs (e.g. a wire sequence number). Data is opaque to the core.
type ReceiverInvocationContext struct {
	Receiver Receiver
	Data     any
}

// ResultProducer is a single-use handle owning transport-side
// resources for one pending reply. The core invokes exactly one of
// Produce or Discard on a given instance, never both, never neither.
type ResultProducer interface {
	// Produce delivers the result or returns the remote failure
	// unchanged (the core wraps it as RemoteFailure).
	Produce() (any, error)
	// Discard releases transport resources without reading the result.
	Discard()
}

// ProxyHandler is the stand-in object's backing handler: it owns the
// target locator, a proxy-scoped (not per-invocation) attachment
// namespace, and the weak-affinity slot interceptors may update.
type ProxyHandler interface {
	GetLocator() any
	GetAttachment(key any) (any, bool)
	SetAttachment(key any, value any)
	SetWeakAffinity(affinity any)
}
