package interceptor

import "invokex/invoke"

// AsyncUpgrade upgrades every invocation it sees to asynchronous
// before sending the request, so the caller's dispatch thread never
// blocks past this interceptor: AwaitResponse returns ProceedAsync as
// soon as this interceptor runs, and the caller is handed a
// FutureHandle instead.
//
// This is the minimal reproduction of scenario 2 in the core's test
// suite: an interceptor that calls ctx.ProceedAsynchronously() inside
// HandleInvocation, before calling ctx.SendRequest().
type AsyncUpgrade struct{}

var _ invoke.Interceptor = (*AsyncUpgrade)(nil)

func (AsyncUpgrade) HandleInvocation(ctx *invoke.InvocationContext) error {
	ctx.ProceedAsynchronously()
	return ctx.SendRequest()
}

func (AsyncUpgrade) HandleInvocationResult(ctx *invoke.InvocationContext) (any, error) {
	return ctx.GetResult()
}
