package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pngwen/hacoo-go/cmd/cpd/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
