package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/anidex/internal/formatter"
	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/shared"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// reconcileArgs are the resolved values of [reconcileFlags].
type reconcileArgs struct {
	username string
	language string
	workers  int
}

func (r *Runner) reconcileArgs(cmd *cli.Command) (reconcileArgs, error) {
	args := reconcileArgs{
		username: strings.TrimSpace(cmd.String("username")),
		language: strings.TrimSpace(cmd.String("language")),
		workers:  int(cmd.Int("jobs")),
	}

	if args.username == "" {
		return args, fmt.Errorf("%w: --username", shared.ErrMissingArgument)
	}
	if args.language == "" {
		args.language = r.config.Reconcile.Language
	}
	if args.workers == 0 {
		args.workers = r.config.Reconcile.Workers
	}
	if args.workers < 0 {
		return args, fmt.Errorf("%w: --jobs must be positive, got %d", shared.ErrInvalidArgument, args.workers)
	}

	return args, nil
}

// Check runs a reconciliation and writes the unread titles in the requested format.
func (r *Runner) Check(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	args, err := r.reconcileArgs(cmd)
	if err != nil {
		return err
	}

	engine, err := r.reconciler(ctx)
	if err != nil {
		return err
	}

	items, err := engine.Reconcile(ctx, nil, args.username, args.language, args.workers)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	outputPath := cmd.String("output")
	opts := formatter.Options{
		SiteURL: r.config.MangaDex.SiteURL,
		Links:   !cmd.Bool("no-links") && outputPath == "" && r.isTerminal(),
	}

	if outputPath != "" {
		path, err := formatter.WriteExport(format, items, opts, outputPath)
		if err != nil {
			return err
		}
		r.logger.Info("results written", "path", path, "unread", len(items))
		return nil
	}

	return r.writeItems(format, items, opts)
}

func (r *Runner) writeItems(format formatter.Format, items []models.UnreadItem, opts formatter.Options) error {
	data, err := formatter.Render(format, items, opts)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// isTerminal reports whether output is an interactive terminal, where hyperlinks render.
func (r *Runner) isTerminal() bool {
	f, ok := r.output.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
