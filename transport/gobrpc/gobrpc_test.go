package gobrpc

import (
	"errors"
	"net"
	"reflect"
	"testing"

	"invokex/invoke"
	"invokex/proxy"
)

type Divider struct{}

type DividerArgs struct{ Num1, Num2 int }

func (d *Divider) Divide(args DividerArgs, reply *int) error {
	if args.Num2 == 0 {
		return errors.New("divide by zero")
	}
	*reply = args.Num1 / args.Num2
	return nil
}

func startTestServer(t *testing.T, addr chan string) {
	t.Helper()
	srv := NewServer()
	if err := srv.Register(&Divider{}); err != nil {
		t.Fatal(err)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr <- l.Addr().String()
	go srv.Accept(l)
}

func divideContext(t *testing.T, conn *Connection, num1, num2 int) *invoke.InvocationContext {
	t.Helper()
	viewType := reflect.TypeOf(Divider{})
	method, _ := reflect.TypeOf(&Divider{}).MethodByName("Divide")
	locator := proxy.NewLocator("divider-1", viewType, nil)
	handler := proxy.NewHandler(locator)

	ctx := invoke.NewInvocationContext(handler, nil, method, viewType,
		[]any{DividerArgs{num1, num2}}, nil)
	ctx.SetReceiverInvocationContext(&invoke.ReceiverInvocationContext{Receiver: conn})
	return ctx
}

func TestConnectionEndToEnd(t *testing.T) {
	addr := make(chan string, 1)
	startTestServer(t, addr)

	conn, err := Dial("tcp", <-addr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	for i := 1; i <= 5; i++ {
		ctx := divideContext(t, conn, i*4, i*2)
		if err := ctx.SendRequest(); err != nil {
			t.Fatalf("send request %d: %v", i, err)
		}

		result, err := ctx.AwaitResponse()
		if err != nil {
			t.Fatalf("await response %d: %v", i, err)
		}

		got := result.(int)
		want := (i * 4) / (i * 2)
		if got != want {
			t.Fatalf("round %d: got %d, want %d", i, got, want)
		}
	}
}

func TestConnectionRemoteFailure(t *testing.T) {
	addr := make(chan string, 1)
	startTestServer(t, addr)

	conn, err := Dial("tcp", <-addr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	ctx := divideContext(t, conn, 1, 0)
	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}

	_, err = ctx.AwaitResponse()
	if err == nil {
		t.Fatal("expected a division-by-zero remote failure")
	}
}

func TestConnectionCancelBeforeReply(t *testing.T) {
	addr := make(chan string, 1)
	startTestServer(t, addr)

	conn, err := Dial("tcp", <-addr)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	ctx := divideContext(t, conn, 8, 4)
	if err := ctx.SendRequest(); err != nil {
		t.Fatal(err)
	}
	future := ctx.GetFutureResponse()

	// Racy by nature: either the cancel wins and the future reports
	// cancellation, or the reply had already landed. Both are valid
	// outcomes; the point is that Get never hangs or panics.
	future.Cancel(false)
	if _, err := future.Get(); err != nil {
		t.Logf("cancelled before reply: %v", err)
	}
}
