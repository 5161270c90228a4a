// Command musicetl runs the award-nomination / track-catalog pipeline: once,
// stage by stage for an external scheduler, on a cron schedule, or whenever
// a source file changes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// register all backends with the storage factory.
	_ "musicetl/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "musicetl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
