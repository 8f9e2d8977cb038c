package invoke

import (
	"reflect"
	"sync"
	"time"
)

// state is the invocation state machine's current position, guarded
// by InvocationContext.mu.
type state int

const (
	stateWaiting state = iota
	stateCancelReq
	stateReady
	stateConsuming
	stateDone
	stateFailed
	stateCancelled
	stateDiscarded
)

func (s state) terminal() bool {
	switch s {
	case stateDone, stateFailed, stateCancelled, stateDiscarded:
		return true
	default:
		return false
	}
}

// asyncState is the orthogonal asynchrony mode, guarded by the same
// lock. It is monotonic: SYNCHRONOUS -> {ASYNCHRONOUS, ONE_WAY}; the
// two non-synchronous states never inter-transition.
type asyncState int

const (
	asyncSynchronous asyncState = iota
	asyncAsynchronous
	asyncOneWay
)

// proceedAsyncSentinel is the type of the distinguished sentinel
// AwaitResponse returns to mean "the call was upgraded to asynchronous;
// return the FutureHandle and stop blocking here." It carries no data;
// identity is what matters, so the type is unexported and its single
// value, ProceedAsync, is returned only from AwaitResponse.
type proceedAsyncSentinel struct{}

// ProceedAsync is the PROCEED_ASYNC tag value.
var ProceedAsync = &proceedAsyncSentinel{}

// InvocationContext is the central object of one client-initiated
// remote method call: immutable call identity, the interceptor chain,
// the pipeline cursor, the state machine, and the ResultProducer slot.
type InvocationContext struct {
	Attachable

	// Immutable call identity, safe to share without synchronization.
	locator       any
	invokedMethod reflect.Method
	parameters    []any
	invokedProxy  any
	viewClass     reflect.Type
	proxyHandler  ProxyHandler

	interceptorChain []Interceptor

	// Pipeline state: mutated only on the thread currently driving a
	// pass, except that ResultReady resets cursor to 0 under mu when it
	// installs a producer.
	cursor      int
	requestDone bool
	resultDone  bool

	// State machine: guarded by mu/cond. No Receiver, ResultProducer,
	// or Interceptor call is ever made while mu is held.
	mu             sync.Mutex
	cond           *sync.Cond
	st             state
	async          asyncState
	resultProducer ResultProducer
	cachedResult   any
	cachedErr      error

	receiverBinding *ReceiverInvocationContext
	contextData     *ContextData

	started time.Time
}

// NewInvocationContext constructs a fresh context for one call. chain
// is shared and read-only for the lifetime of every context built from
// it; callers must not mutate it afterwards.
func NewInvocationContext(proxyHandler ProxyHandler, invokedProxy any, invokedMethod reflect.Method, viewClass reflect.Type, parameters []any, chain []Interceptor) *InvocationContext {
	ctx := &InvocationContext{
		proxyHandler:     proxyHandler,
		invokedProxy:     invokedProxy,
		invokedMethod:    invokedMethod,
		viewClass:        viewClass,
		parameters:       parameters,
		interceptorChain: chain,
		st:               stateWaiting,
		async:            asyncSynchronous,
		started:          time.Now(),
	}
	metricsHook.observeStart()
	if proxyHandler != nil {
		ctx.locator = proxyHandler.GetLocator()
	}
	ctx.cond = sync.NewCond(&ctx.mu)
	registerAbandonFinalizer(ctx)
	return ctx
}

// GetLocator returns the target locator.
func (ctx *InvocationContext) GetLocator() any { return ctx.locator }

// GetInvokedMethod returns the invoked method descriptor.
func (ctx *InvocationContext) GetInvokedMethod() reflect.Method { return ctx.invokedMethod }

// GetParameters returns the argument tuple.
func (ctx *InvocationContext) GetParameters() []any { return ctx.parameters }

// GetInvokedProxy returns the proxy object the call was made through.
func (ctx *InvocationContext) GetInvokedProxy() any { return ctx.invokedProxy }

// ViewClass returns the invoked view type given to
// NewInvocationContext. It is not read from the locator, nor from the
// invoked method's declaring type.
func (ctx *InvocationContext) ViewClass() reflect.Type { return ctx.viewClass }

// GetContextData returns the lazily-created, insertion-ordered mapping
// of per-invocation context data. The core does not send it anywhere;
// transport/gobrpc's Connection puts only the parameters on the wire.
func (ctx *InvocationContext) GetContextData() *ContextData {
	if ctx.contextData == nil {
		ctx.contextData = newContextData()
	}
	return ctx.contextData
}

// ProxyAttachment reads an attachment from the bound ProxyHandler's
// namespace, distinct from this context's own per-invocation
// attachments (Attachable).
func (ctx *InvocationContext) ProxyAttachment(key any) (any, bool) {
	if ctx.proxyHandler == nil {
		return nil, false
	}
	return ctx.proxyHandler.GetAttachment(key)
}

// SetProxyAttachment writes an attachment into the bound ProxyHandler's
// namespace.
func (ctx *InvocationContext) SetProxyAttachment(key any, value any) {
	if ctx.proxyHandler == nil {
		return
	}
	ctx.proxyHandler.SetAttachment(key, value)
}

// SetReceiverInvocationContext binds the receiver chosen for this call.
// Called by the surrounding dispatcher (outside this package's scope)
// before the request pass reaches the end of the chain.
func (ctx *InvocationContext) SetReceiverInvocationContext(rcvCtx *ReceiverInvocationContext) {
	ctx.receiverBinding = rcvCtx
}

// GetFutureResponse returns the caller-visible completion handle bound
// 1:1 to this context.
func (ctx *InvocationContext) GetFutureResponse() *FutureHandle {
	return &FutureHandle{ctx: ctx}
}
