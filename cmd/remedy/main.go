// File: cmd/remedy/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/remedy-cli/cmd"
	"github.com/xkilldash9x/remedy-cli/internal/observability"
)

// osExit is a variable so tests can intercept the exit path.
var osExit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err == nil {
		return
	}

	var sessErr *cmd.SessionError
	if errors.As(err, &sessErr) {
		osExit(sessErr.ExitCode())
		return
	}
	osExit(1)
}
