package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tapestry/safefetch/internal/cli"
)

func main() {
	// Cancel in-flight downloads on interrupt so temp files are cleaned up
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
