package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	// Ctrl-C during a sync or fetch exits quietly.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "equipqr: %v\n", err)
	}
	os.Exit(1)
}
