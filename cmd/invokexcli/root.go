package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// GlobalFlags holds flags shared by every subcommand.
type GlobalFlags struct {
	Addr    string
	Verbose bool
}

var (
	globalFlags GlobalFlags
	log         *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "invokexcli",
	Short: "Drive a demo business-object invocation over gobrpc",
	Long: `invokexcli exercises the invocation core end to end: "serve"
hosts a demo Greeter object behind a gobrpc server, "call" dials it
through the full interceptor pipeline and prints the result.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if globalFlags.Verbose {
			log, err = zap.NewDevelopment()
		} else {
			log, err = zap.NewProduction()
		}
		return err
	},
}

func Execute() {
	defer func() {
		if log != nil {
			_ = log.Sync()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Addr, "addr", "127.0.0.1:9797", "gobrpc server address")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(callCmd)
}
