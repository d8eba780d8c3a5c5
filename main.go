package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghmcp/ghmcp/cmd"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.SetVersionInfo(version, commit, date)
	code := exitCode(ctx, cmd.Execute(ctx))
	stop()
	os.Exit(code)
}

// exitCode maps the command result to a process status: 0 on success,
// 130 when interrupted, 1 otherwise.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return 0
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
