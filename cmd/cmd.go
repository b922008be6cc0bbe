// submodule cmd contains command definitions
package main

import (
	"fmt"

	"github.com/desertthunder/anidex/internal/formatter"
	"github.com/urfave/cli/v3"
)

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error); overrides log.level",
		},
	}
}

// reconcileFlags are shared by check and tui. Empty values fall back to the [reconcile] config section.
func reconcileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "username",
			Aliases:  []string{"u"},
			Usage:    "AniList username whose CURRENT manga lists are checked",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "language",
			Aliases: []string{"l"},
			Usage:   "Translated language code for chapters (default: reconcile.language)",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Concurrent workers per list (default: reconcile.workers)",
		},
	}
}

// checkCommand prints titles with unread chapters
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "List manga with chapters newer than your AniList progress",
		Flags: append(reconcileFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Output format %v", formatter.Formats),
				Value:   string(formatter.Text),
			},
			&cli.BoolFlag{
				Name:  "no-links",
				Usage: "Print plain titles instead of terminal hyperlinks",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write results to a file instead of stdout",
			},
		),
		Action: r.Check,
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing of results.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Check progress interactively and open titles in the browser",
		Flags:   reconcileFlags(),
		Action:  r.TUI,
	}
}

// configCommand handles configuration file operations.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination path (default: --config)",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration as TOML",
				Action: r.ConfigShow,
			},
		},
	}
}
