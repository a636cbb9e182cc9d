package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taxledger/internal/config"
	"taxledger/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "finctl",
		Short:         "Operator tooling for the taxledger service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.cfg = config.Load()
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			if level == "" {
				level = a.cfg.LogLevel
			}
			if format == "" {
				format = a.cfg.LogFormat
			}
			a.logger = logging.Setup(level, format)
			a.logger.SetOutput(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (json, text)")

	root.AddCommand(migrateCmd(a))
	root.AddCommand(importActivitiesCmd(a))
	root.AddCommand(taxPeriodCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
