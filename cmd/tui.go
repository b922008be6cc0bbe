package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/anidex/internal/shared"
	"github.com/desertthunder/anidex/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing unread titles.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	args, err := r.reconcileArgs(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	engine, err := r.reconciler(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, ui.Options{
		Username: args.username,
		Language: args.language,
		Workers:  args.workers,
		SiteURL:  r.config.MangaDex.SiteURL,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
