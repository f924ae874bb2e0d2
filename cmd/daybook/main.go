package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"daybook/internal/app"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	options := &rootOptions{}

	root := &cobra.Command{
		Use:           "daybook",
		Short:         "Pomodoro timer with per-session goals and a floating goals window",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDesktop(cmd.Context(), options)
		},
	}
	root.PersistentFlags().StringVar(&options.configPath, "config", "", "settings file (default <config dir>/"+app.Name+"/settings.yaml)")
	root.PersistentFlags().StringVar(&options.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides settings)")

	root.AddCommand(newRunCmd(options))
	root.AddCommand(newCompanionCmd(options))
	root.AddCommand(newHistoryCmd(options))
	return root
}

func newRunCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the desktop app (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDesktop(cmd.Context(), options)
		},
	}
}
