package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"daybook/internal/app"
	"daybook/internal/bridge"
	"daybook/internal/companion"
	"daybook/internal/logging"
	"daybook/internal/platform"

	"github.com/spf13/cobra"
)

const dialTimeout = 5 * time.Second

func newCompanionCmd(options *rootOptions) *cobra.Command {
	var address string
	var large bool

	cmd := &cobra.Command{
		Use:   "companion",
		Short: "Follow the running app's timer and goals from a terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, settings, err := loadSettings(options)
			if err != nil {
				return err
			}
			defer logging.Close()
			if address == "" {
				address = settings.BridgeAddress
			}
			if address == "" {
				address = platform.InstanceAddress(app.Name)
			}
			return runCompanion(cmd.Context(), cmd.OutOrStdout(), bridge.URL(address), large)
		},
	}
	cmd.Flags().StringVar(&address, "addr", "", "bridge address of the running app (default: settings bridge address, then the per-user instance address)")
	cmd.Flags().BoolVar(&large, "large", false, "print the goal list under the status line")
	return cmd
}

func runCompanion(ctx context.Context, out io.Writer, endpoint string, large bool) error {
	logger := logging.NewLogger("companion")

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	remote, err := bridge.Dial(dialCtx, endpoint, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("is %s running? %w", app.Name, err)
	}
	defer func() {
		_ = remote.Close()
	}()

	printer := &viewPrinter{out: out}
	controller := companion.New(remote, companion.Options{
		Logger:   logger,
		Large:    large,
		OnChange: printer.print,
	})
	if err := controller.Mount(ctx); err != nil {
		return err
	}
	defer controller.Unmount()

	select {
	case <-ctx.Done():
		return nil
	case <-remote.Done():
		if err := remote.Err(); err != nil {
			return fmt.Errorf("bridge closed: %w", err)
		}
		return nil
	}
}

// viewPrinter writes a view only when its text differs from the last one,
// so the one-second poll does not repeat lines.
type viewPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func (printer *viewPrinter) print(view companion.View) {
	text := view.CompactLine()
	if view.Large {
		for _, goal := range view.Goals {
			mark := "[ ]"
			if goal.Finished {
				mark = "[x]"
			}
			text += "\n  " + mark + " " + goal.Text
		}
	}

	printer.mu.Lock()
	defer printer.mu.Unlock()
	if text == printer.last {
		return
	}
	printer.last = text
	_, _ = fmt.Fprintln(printer.out, text)
}
