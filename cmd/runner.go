package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anidex/internal/services"
	"github.com/desertthunder/anidex/internal/shared"
	"github.com/desertthunder/anidex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	lists      services.ProgressLister
	resolver   services.CatalogResolver
	fetcher    services.ProgressFetcher
	engine     tasks.Engine
	logger     *log.Logger
	output     io.Writer
	runID      string
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Services left nil are built from the loaded configuration when a command runs.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Lists      services.ProgressLister
	Resolver   services.CatalogResolver
	Fetcher    services.ProgressFetcher
	Engine     tasks.Engine
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		lists:      opts.Lists,
		resolver:   opts.Resolver,
		fetcher:    opts.Fetcher,
		engine:     opts.Engine,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		checkCommand, tuiCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger, keeping the run id.
func (r *Runner) SetLogger(logger *log.Logger) {
	if r.runID != "" {
		logger = shared.WithLogger(logger, "run", r.runID)
	}
	r.logger = logger
}

// Before loads configuration and applies the log level ahead of every command.
//
// A missing config file is not an error unless --config was given explicitly.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.config == nil {
		config, err := r.loadConfig(cmd.IsSet("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	levelName := r.config.Log.Level
	if cmd.IsSet("log-level") {
		levelName = cmd.String("log-level")
	}
	level, err := shared.ParseLevel(levelName)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, level)

	r.runID = shared.GenerateID()
	r.logger = shared.WithLogger(r.logger, "run", r.runID)

	return ctx, nil
}

func (r *Runner) loadConfig(explicit bool) (*shared.Config, error) {
	if r.configPath == "" {
		return shared.DefaultConfig(), nil
	}

	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		r.logger.Debug("loaded config", "path", r.configPath)
		return config, nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return shared.DefaultConfig(), nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, r.configPath)
	default:
		return nil, err
	}
}

// reconciler returns the engine, wiring AniList and MangaDex from config for any service not injected.
func (r *Runner) reconciler(ctx context.Context) (tasks.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}

	if r.lists == nil {
		r.lists = services.NewAniListFromConfig(ctx, r.config, r.logger)
	}
	if r.resolver == nil || r.fetcher == nil {
		mangadex, err := services.NewMangaDexFromConfig(r.config, r.logger)
		if err != nil {
			return nil, err
		}
		if r.resolver == nil {
			r.resolver = mangadex
		}
		if r.fetcher == nil {
			r.fetcher = mangadex
		}
	}

	r.engine = tasks.NewReconciler(r.lists, r.resolver, r.fetcher, r.logger)
	return r.engine, nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
