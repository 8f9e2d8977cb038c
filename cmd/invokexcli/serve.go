package main

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"invokex/transport/gobrpc"
)

var serveFlags struct {
	metricsAddr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the demo Greeter object over gobrpc",
	RunE: func(cmd *cobra.Command, args []string) error {
		gobrpc.SetLogger(log)

		srv := gobrpc.NewServer()
		if err := srv.Register(Greeter{}); err != nil {
			return err
		}

		if serveFlags.metricsAddr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(prometheus.NewGoCollector())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				log.Warn("metrics server exited", zap.Error(http.ListenAndServe(serveFlags.metricsAddr, mux)))
			}()
		}

		l, err := net.Listen("tcp", globalFlags.Addr)
		if err != nil {
			return err
		}
		log.Info("serving", zap.String("addr", l.Addr().String()))
		srv.Accept(l)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (empty disables)")
}
