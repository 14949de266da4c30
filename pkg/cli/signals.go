package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler creates a context that is canceled on the first
// SIGINT or SIGTERM. Commands that run to completion (maintain, bench)
// use it to stop cleanly between partitions or records rather than
// mid-operation.
//
// Only the first signal is caught. After it the handler unregisters
// itself, so a second interrupt terminates the process immediately
// instead of waiting out a slow drop.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		signal.Stop(sigChan)
		cancel()
	}()

	return ctx
}

// WaitForShutdown returns a channel that receives shutdown signals. The
// daemon selects on it against component errors; one-shot commands use
// SetupSignalHandler instead.
func WaitForShutdown() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	return sigChan
}
