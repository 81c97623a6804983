package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/autodeployr/engine/pkg/cli"
	"github.com/autodeployr/engine/pkg/util/console"
)

func main() {
	cmd, err := cli.NewRootCommand()
	if err != nil {
		console.Fatalf("%s", err)
	}

	ctx, cancel := newCancellationContext()
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		console.Fatalf("%s", err)
	}
}

func newCancellationContext() (context.Context, context.CancelFunc) {
	// First signal cancels the context, giving commands a chance to clean up.
	// Second signal force-exits immediately.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	go func() {
		<-ctx.Done()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		console.Debugf("Shutting down. Signal again to force quit.")

		<-sig
		console.Warnf("Forced exit")
		os.Exit(1)
	}()

	return ctx, cancel
}
