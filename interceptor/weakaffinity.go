package interceptor

import "invokex/invoke"

// contextDataAffinityKey is this interceptor's context-data convention:
// whichever party wants to steer future calls to a particular node sets
// a value under this key in the context data, and DepositAffinity
// promotes it to the attachment the core applies to the proxy handler
// once the result pass unwinds.
const contextDataAffinityKey = "invokex.affinity-hint"

// DepositAffinity is a lower interceptor's contribution to weak
// affinity: before continuing the result pass, it promotes any
// affinity hint found in the context data into the
// invoke.WeakAffinityKey attachment the core's outermost GetResult call
// applies to the proxy handler after the whole pass unwinds.
type DepositAffinity struct{}

var _ invoke.Interceptor = (*DepositAffinity)(nil)

func (DepositAffinity) HandleInvocation(ctx *invoke.InvocationContext) error {
	return ctx.SendRequest()
}

func (DepositAffinity) HandleInvocationResult(ctx *invoke.InvocationContext) (any, error) {
	if hint, ok := ctx.GetContextData().Get(contextDataAffinityKey); ok {
		invoke.SetAttachment(&ctx.Attachable, invoke.WeakAffinityKey, hint)
	}
	return ctx.GetResult()
}
