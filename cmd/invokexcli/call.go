package main

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invokex/interceptor"
	"invokex/invoke"
	"invokex/proxy"
	"invokex/transport/gobrpc"
)

var callFlags struct {
	name    string
	async   bool
	timeout time.Duration
}

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Invoke Greeter.Greet through the interceptor pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		gobrpc.SetLogger(log)

		conn, err := gobrpc.Dial("tcp", globalFlags.Addr)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		defer func() { _ = conn.Close() }()

		viewType := reflect.TypeOf(Greeter{})
		method, ok := viewType.MethodByName("Greet")
		if !ok {
			return fmt.Errorf("invokexcli: Greeter has no Greet method")
		}

		locator := proxy.NewLocator("greeter-demo", viewType, nil)
		handler := proxy.NewHandler(locator)

		chain := []invoke.Interceptor{
			&interceptor.Logging{Logger: log},
			&interceptor.DepositAffinity{},
		}
		if callFlags.async {
			chain = append([]invoke.Interceptor{&interceptor.AsyncUpgrade{}}, chain...)
		}

		ctx := invoke.NewInvocationContext(handler, nil, method, viewType,
			[]any{GreetArgs{Name: callFlags.name}}, chain)
		ctx.SetReceiverInvocationContext(&invoke.ReceiverInvocationContext{Receiver: conn})

		if err := ctx.SendRequest(); err != nil {
			return fmt.Errorf("send request: %w", err)
		}

		result, err := ctx.AwaitResponse()
		if err != nil {
			return fmt.Errorf("await response: %w", err)
		}

		if result == invoke.ProceedAsync {
			future := ctx.GetFutureResponse()
			log.Info("upgraded to asynchronous, waiting on future")
			result, err = future.GetTimeout(callFlags.timeout)
			if err != nil {
				return fmt.Errorf("future get: %w", err)
			}
		}

		fmt.Println(result)
		if affinity, ok := handler.WeakAffinity(); ok {
			log.Debug("weak affinity recorded", zap.Any("affinity", affinity))
		}
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callFlags.name, "name", "world", "name to greet")
	callCmd.Flags().BoolVar(&callFlags.async, "async", false, "upgrade the call to asynchronous before sending")
	callCmd.Flags().DurationVar(&callFlags.timeout, "timeout", 5*time.Second, "future wait timeout when --async is set")
}
