package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songsim/internal/server"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/shared"
	"github.com/desertthunder/songsim/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	clients    server.Clients
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Clients    server.Clients // Built from Config when nil
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		clients:    opts.Clients,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// Before loads the configuration named by --config and builds the Spotify clients from it.
//
// A missing config file falls back to the defaults plus environment overrides.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if loaded := shared.LoadEnv(".env", ".env.local"); len(loaded) > 0 {
		r.logger.Debug("loaded environment", "files", loaded)
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
		r.config = shared.DefaultConfig()
		r.config.ApplyEnv()
	}
	r.configPath = path

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.LogLevel))
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.clients == nil {
		r.clients = newFactory(r.config, r.logger)
	}
	return ctx, nil
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, spotifyCommand, similarCommand, searchCommand, favoritesCommand,
		serveCommand, sessionsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// newFactory builds the client factory from the credentials and catalog settings in config.
func newFactory(config *shared.Config, logger *log.Logger) *services.Factory {
	return services.NewFactory(
		config.Credentials.Spotify.Map(),
		services.WithRateLimit(config.Catalog.RequestsPerSecond, config.Catalog.Burst),
		services.WithBreaker(config.Catalog.BreakerFailures, config.Catalog.BreakerTimeout.Duration),
		services.WithLogger(logger),
	)
}

func (r *Runner) engineOptions() tasks.Options {
	rc := r.config.Recommend
	return tasks.Options{
		CallTimeout:   rc.CallTimeout.Duration,
		GenreFloor:    rc.GenreFloor,
		PopularQuery:  rc.PopularQuery,
		DefaultMarket: rc.DefaultMarket,
		Sequential:    rc.Sequential,
	}
}

// engine builds a recommendation engine over the app client.
func (r *Runner) engine(ctx context.Context) (*tasks.RecommendationEngine, error) {
	catalog, err := r.clients.App(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.NewRecommendationEngine(catalog, r.engineOptions(), r.logger), nil
}

// userClient builds a client from the token saved by `spotify auth`. Refreshed tokens are written back
// to the config file.
func (r *Runner) userClient(ctx context.Context) (services.UserService, error) {
	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run `songsim spotify auth` first", shared.ErrNotAuthenticated)
	}

	return r.clients.User(ctx, token, func(t *oauth2.Token) {
		if err := r.saveTokens(t); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		} else {
			r.logger.Debug("persisted refreshed token", "path", r.configPath)
		}
	})
}

// saveTokens stores token in the config and writes it to the config path, if any.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
