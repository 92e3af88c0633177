// -- cmd/wirectl/main.go --
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/selwire/jsonwire/cmd"
	"github.com/selwire/jsonwire/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := cmd.Execute(ctx)
	stop()
	observability.Sync()

	// A signal-driven shutdown is a clean exit, not a failure.
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}
