package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/anidex/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "anidex",
		Usage:    "Find manga on your AniList reading list with new chapters on MangaDex",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   runner.Before,
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		runner.logger.Fatal("application error", "error", err)
	}
}
