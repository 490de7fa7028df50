// Command tikzcell renders TikZ drawings to PNG. See `tikzcell --help`.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/tikzcell/internal/cli"
	"github.com/matzehuels/tikzcell/pkg/buildinfo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	buildinfo.Resolve()

	err := cli.New(os.Stderr, cli.LogInfo).Execute(ctx, os.Args[1:])
	stop()
	os.Exit(cli.ExitCode(err))
}
