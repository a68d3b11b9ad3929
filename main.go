// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/axdriver/axdriver-cli/cmd"
)

// main is the entry point for the axdriver CLI application.
func main() {
	// Interrupts cancel the run context so the agent stops between steps
	// instead of being killed mid-action.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
