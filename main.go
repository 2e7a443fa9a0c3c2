package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/coredump-labs/armatomic/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "armatomic"
	app.Usage = "Misaligned ARM64 atomic instruction emulation core"
	app.Description = "Offline decode and replay tooling for the signal-handler atomic-emulation core."
	app.Commands = []*cli.Command{
		cmd.DecodeCommand,
		cmd.ReplayCommand,
		cmd.TelemetryCommand,
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		fmt.Println("\r\nExiting...")
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted")
			os.Exit(130)
		}
		_, _ = fmt.Fprintf(os.Stderr, "error: %v", err)
		os.Exit(1)
	}
}
