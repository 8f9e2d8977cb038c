package interceptor

import (
	"reflect"
	"testing"

	"invokex/invoke"
)

type stubReceiver struct{}

func (stubReceiver) ProcessInvocation(ctx *invoke.InvocationContext, rcvCtx *invoke.ReceiverInvocationContext) error {
	return nil
}

func (stubReceiver) CancelInvocation(ctx *invoke.InvocationContext, rcvCtx *invoke.ReceiverInvocationContext) bool {
	return false
}

type stubProducer struct{ value any }

func (p *stubProducer) Produce() (any, error) { return p.value, nil }
func (p *stubProducer) Discard()               {}

func newTestContext(chain []invoke.Interceptor) *invoke.InvocationContext {
	method, _ := reflect.TypeOf(struct{}{}).MethodByName("String")
	ctx := invoke.NewInvocationContext(nil, nil, method, nil, nil, chain)
	ctx.SetReceiverInvocationContext(&invoke.ReceiverInvocationContext{Receiver: stubReceiver{}})
	return ctx
}

func TestLoggingInterceptorPassesThrough(t *testing.T) {
	ctx := newTestContext([]invoke.Interceptor{&Logging{}})

	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}
	ctx.ResultReady(&stubProducer{value: "ok"})

	result, err := ctx.AwaitResponse()
	if err != nil {
		t.Fatal(err)
	}
	if result != "ok" {
		t.Fatalf("got %v", result)
	}
}

func TestAsyncUpgradeReturnsProceedAsync(t *testing.T) {
	ctx := newTestContext([]invoke.Interceptor{&AsyncUpgrade{}})

	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}
	result, err := ctx.AwaitResponse()
	if err != nil {
		t.Fatal(err)
	}
	if result != invoke.ProceedAsync {
		t.Fatalf("got %v, want ProceedAsync", result)
	}
}

func TestDepositAffinityPromotesContextDataHint(t *testing.T) {
	ctx := newTestContext([]invoke.Interceptor{&DepositAffinity{}})

	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}
	ctx.GetContextData().Set(contextDataAffinityKey, "node-9")
	ctx.ResultReady(&stubProducer{value: "ok"})

	if _, err := ctx.AwaitResponse(); err != nil {
		t.Fatal(err)
	}

	affinity, ok := invoke.GetAttachment(&ctx.Attachable, invoke.WeakAffinityKey)
	if !ok || affinity != "node-9" {
		t.Fatalf("expected weak affinity attachment node-9, got (%v, %v)", affinity, ok)
	}
}

func TestDepositAffinityNoHintLeavesAttachmentUnset(t *testing.T) {
	ctx := newTestContext([]invoke.Interceptor{&DepositAffinity{}})

	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}
	ctx.ResultReady(&stubProducer{value: "ok"})

	if _, err := ctx.AwaitResponse(); err != nil {
		t.Fatal(err)
	}

	if _, ok := invoke.GetAttachment(&ctx.Attachable, invoke.WeakAffinityKey); ok {
		t.Fatal("no hint was deposited, so no weak affinity attachment should exist")
	}
}
