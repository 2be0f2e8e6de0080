// Command launchpad is a terminal client for a Launchpad server's data API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, a := newRootCmd(os.Stdout)
	err := root.ExecuteContext(ctx)
	// Queued upvotes still go out when a command fails.
	a.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
