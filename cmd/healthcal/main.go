// ABOUTME: Entry point for the healthcal CLI.
// ABOUTME: Runs the root Cobra command with a signal-aware context.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/healthcal/internal/apperr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", apperr.Message(err))
		stop()
		os.Exit(1)
	}
}

// execute runs the root command. A failing command skips PersistentPostRunE,
// so the app is closed here as well.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	return err
}
