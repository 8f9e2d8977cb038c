package invoke

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

type stubProducer struct {
	value      any
	err        error
	discarded  bool
	produced   bool
}

func (p *stubProducer) Produce() (any, error) {
	p.produced = true
	return p.value, p.err
}

func (p *stubProducer) Discard() { p.discarded = true }

type recordingReceiver struct {
	cancelled bool
	cancelOK  bool
}

func (r *recordingReceiver) ProcessInvocation(ctx *InvocationContext, rcvCtx *ReceiverInvocationContext) error {
	return nil
}

func (r *recordingReceiver) CancelInvocation(ctx *InvocationContext, rcvCtx *ReceiverInvocationContext) bool {
	r.cancelled = true
	return r.cancelOK
}

func testContext(chain []Interceptor) *InvocationContext {
	method, _ := reflect.TypeOf(struct{}{}).MethodByName("String")
	return NewInvocationContext(nil, nil, method, nil, nil, chain)
}

func TestHappyPathNoInterceptors(t *testing.T) {
	ctx := testContext(nil)
	rcv := &recordingReceiver{}
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: rcv})

	if err := ctx.SendRequest(); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if !ctx.RequestDone() {
		t.Fatal("RequestDone should be true after SendRequest")
	}

	ctx.ResultReady(&stubProducer{value: 42})

	result, err := ctx.AwaitResponse()
	if err != nil {
		t.Fatalf("AwaitResponse: %v", err)
	}
	if result != 42 {
		t.Fatalf("got %v, want 42", result)
	}
	if !ctx.ResultDone() {
		t.Fatal("ResultDone should be true")
	}
}

func TestAsyncUpgradeReturnsProceedAsync(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})

	ctx.ProceedAsynchronously()
	if err := ctx.SendRequest(); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	result, err := ctx.AwaitResponse()
	if err != nil {
		t.Fatalf("AwaitResponse: %v", err)
	}
	if result != ProceedAsync {
		t.Fatalf("got %v, want ProceedAsync", result)
	}

	ctx.ResultReady(&stubProducer{value: "late"})
	future := ctx.GetFutureResponse()
	got, err := future.Get()
	if err != nil {
		t.Fatalf("future.Get: %v", err)
	}
	if got != "late" {
		t.Fatalf("got %v, want late", got)
	}
}

func TestCancelWinsWhenReceiverHonorsIt(t *testing.T) {
	ctx := testContext(nil)
	rcv := &recordingReceiver{cancelOK: true}
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: rcv})
	_ = ctx.SendRequest()

	future := ctx.GetFutureResponse()
	if ok := future.Cancel(false); !ok {
		t.Fatal("Cancel should report true when the receiver honors it")
	}
	if !rcv.cancelled {
		t.Fatal("receiver should have observed CancelInvocation")
	}

	ctx.Cancelled()

	result, err := future.Get()
	if result != nil {
		t.Fatalf("expected nil result, got %v", result)
	}
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected Cancelled error, got %v", err)
	}
	if !future.IsCancelled() {
		t.Fatal("IsCancelled should be true")
	}
}

func TestCancelRequestedThenResultArrivesAnyway(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{cancelOK: false}})
	_ = ctx.SendRequest()

	future := ctx.GetFutureResponse()
	future.Cancel(false)

	producer := &stubProducer{value: "won the race"}
	ctx.ResultReady(producer)

	result, err := future.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "won the race" {
		t.Fatalf("got %v, want the race-winning result", result)
	}
	if producer.discarded {
		t.Fatal("a result that wins the race must not be discarded")
	}
}

func TestSetDiscardResultBeforeReply(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})
	_ = ctx.SendRequest()

	ctx.SetDiscardResult()

	producer := &stubProducer{value: "unwanted"}
	ctx.ResultReady(producer)

	if !producer.discarded {
		t.Fatal("a result landing after discard was requested must be discarded")
	}
	if producer.produced {
		t.Fatal("a discarded result must never be produced from")
	}
}

func TestSetDiscardResultBeforeReplyThenFutureGetThrowsOneWay(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})
	_ = ctx.SendRequest()

	future := ctx.GetFutureResponse()
	ctx.SetDiscardResult()

	producer := &stubProducer{value: "unwanted"}
	ctx.ResultReady(producer)

	result, err := future.Get()
	if result != nil {
		t.Fatalf("expected nil result, got %v", result)
	}
	if !errors.Is(err, ErrOneWay) {
		t.Fatalf("expected OneWay, got %v", err)
	}
	if !producer.discarded || producer.produced {
		t.Fatalf("producer must be discarded, never produced: discarded=%v produced=%v", producer.discarded, producer.produced)
	}
}

func TestContextDataPreservesInsertionOrder(t *testing.T) {
	ctx := testContext(nil)
	data := ctx.GetContextData()
	data.Set("b", 2)
	data.Set("a", 1)
	data.Set("c", 3)
	data.Set("a", 10) // updating an existing key must not move it

	var keys []string
	var values []any
	data.Each(func(key string, value any) {
		keys = append(keys, key)
		values = append(values, value)
	})

	wantKeys := []string{"b", "a", "c"}
	wantValues := []any{2, 10, 3}
	for i, k := range wantKeys {
		if keys[i] != k || values[i] != wantValues[i] {
			t.Fatalf("round %d: got (%v, %v), want (%v, %v)", i, keys[i], values[i], k, wantValues[i])
		}
	}
	if data.Len() != 3 {
		t.Fatalf("got length %d, want 3", data.Len())
	}
}

func TestSetDiscardResultOnUnconsumedReadyResult(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})
	_ = ctx.SendRequest()

	producer := &stubProducer{value: "already here"}
	ctx.ResultReady(producer)

	ctx.SetDiscardResult()

	if !producer.discarded {
		t.Fatal("a READY-but-unconsumed result must be discarded inline by SetDiscardResult")
	}
	if producer.produced {
		t.Fatal("a discarded result must never be produced from")
	}
}

func TestFailurePropagatesThroughAwaitResponse(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})
	_ = ctx.SendRequest()

	ctx.Failed(errors.New("boom"))

	_, err := ctx.AwaitResponse()
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("expected RemoteFailure, got %v", err)
	}
}

func TestOneWayAwaitResponse(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})
	_ = ctx.SendRequest()

	ctx.SetDiscardResult()

	_, err := ctx.AwaitResponse()
	if !errors.Is(err, ErrOneWay) {
		t.Fatalf("expected OneWay, got %v", err)
	}
}

func TestGetTimeoutExpires(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})
	_ = ctx.SendRequest()

	future := ctx.GetFutureResponse()
	_, err := future.GetTimeout(10 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestSendRequestTwiceIsWrongPhase(t *testing.T) {
	ctx := testContext(nil)
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})
	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}
	err := ctx.SendRequest()
	if !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected WrongPhase, got %v", err)
	}
}

func TestNoReceiverBoundAtChainEnd(t *testing.T) {
	ctx := testContext(nil)
	err := ctx.SendRequest()
	if !errors.Is(err, ErrNoReceiverBound) {
		t.Fatalf("expected NoReceiverBound, got %v", err)
	}
}

// chainRecorder is a minimal Interceptor that forwards both passes
// unchanged, used to exercise a populated chain rather than the
// empty-chain fast path.
type chainRecorder struct {
	requestVisits []int
	resultVisits  []int
	idx           int
}

func (c *chainRecorder) HandleInvocation(ctx *InvocationContext) error {
	c.requestVisits = append(c.requestVisits, c.idx)
	return ctx.SendRequest()
}

func (c *chainRecorder) HandleInvocationResult(ctx *InvocationContext) (any, error) {
	c.resultVisits = append(c.resultVisits, c.idx)
	return ctx.GetResult()
}

func TestChainVisitsEveryInterceptorBothPasses(t *testing.T) {
	a := &chainRecorder{idx: 0}
	b := &chainRecorder{idx: 1}
	ctx := testContext([]Interceptor{a, b})
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})

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
	if len(a.requestVisits) != 1 || len(b.requestVisits) != 1 {
		t.Fatalf("each interceptor should see the request pass exactly once: a=%v b=%v", a.requestVisits, b.requestVisits)
	}
	if len(a.resultVisits) != 1 || len(b.resultVisits) != 1 {
		t.Fatalf("each interceptor should see the result pass exactly once: a=%v b=%v", a.resultVisits, b.resultVisits)
	}
}

func TestWeakAffinityAppliedOnceByOutermostResultPass(t *testing.T) {
	type affinitySetter struct{ chainRecorder }
	setter := &affinitySetter{}

	ctx := testContext([]Interceptor{setter})
	ctx.SetReceiverInvocationContext(&ReceiverInvocationContext{Receiver: &recordingReceiver{}})

	handler := &fakeProxyHandler{}
	ctx.proxyHandler = handler

	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}
	SetAttachment(&ctx.Attachable, WeakAffinityKey, "node-7")
	ctx.ResultReady(&stubProducer{value: "ok"})
	if _, err := ctx.AwaitResponse(); err != nil {
		t.Fatal(err)
	}

	if handler.affinity != "node-7" {
		t.Fatalf("expected weak affinity to be applied, got %v", handler.affinity)
	}
	if handler.setCount != 1 {
		t.Fatalf("expected SetWeakAffinity exactly once, got %d", handler.setCount)
	}
}

type fakeProxyHandler struct {
	affinity any
	setCount int
}

func (h *fakeProxyHandler) GetLocator() any                { return "loc" }
func (h *fakeProxyHandler) GetAttachment(any) (any, bool)   { return nil, false }
func (h *fakeProxyHandler) SetAttachment(any, any)          {}
func (h *fakeProxyHandler) SetWeakAffinity(affinity any) {
	h.affinity = affinity
	h.setCount++
}
