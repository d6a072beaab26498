package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is canceled on the first SIGINT or
// SIGTERM. A second signal exits right away, for cycles stuck on a slow
// portal.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("received signal, finishing the current cycle", "signal", sig.String())
		cancel()

		sig = <-sigs
		slog.Warn("received second signal, exiting", "signal", sig.String())
		os.Exit(1)
	}()

	return ctx
}
