package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshweekly/internal/repositories"
	"github.com/desertthunder/freshweekly/internal/services"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/desertthunder/freshweekly/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	oauth      services.OAuthService
	db         *sql.DB
	ownsDB     bool
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config, Catalog and DB are resolved from the config file in [Runner.Before] when left nil.
type RunnerOpts struct {
	Config  *shared.Config
	Catalog services.Catalog
	OAuth   services.OAuthService
	DB      *sql.DB
	Logger  *log.Logger
	Output  io.Writer
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
		config:  opts.Config,
		catalog: opts.Catalog,
		oauth:   opts.OAuth,
		db:      opts.DB,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authCommand, playlistsCommand, generateCommand, historyCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies the global flags, loads the config file and builds the Spotify service.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	switch {
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.WarnLevel)
	}

	r.configPath = cmd.String("config")
	if r.config == nil {
		config, err := shared.LoadConfigOrDefault(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if r.catalog == nil && r.oauth == nil {
		if err := r.connectSpotify(ctx); err != nil {
			r.logger.Warn("spotify client unavailable", "error", err)
		}
	}
	return ctx, nil
}

// After releases the database handle opened by any command.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// connectSpotify creates the Spotify service from the stored credentials.
//
// The catalog is only installed when a token is present; the OAuth flow is always available.
func (r *Runner) connectSpotify(ctx context.Context) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientID == "your_spotify_client_id" {
		return fmt.Errorf("%w: set credentials.spotify.client_id in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(),
		services.WithClientConfig(r.config.Client),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
	)
	if err != nil {
		return err
	}
	svc.SetTokenRefreshCallback(r.persistToken)
	r.oauth = svc

	if !creds.HasToken() {
		return nil
	}
	if err := svc.OAuthenticate(ctx, creds.Token()); err != nil {
		return err
	}
	r.catalog = svc
	return nil
}

// persistToken saves refreshed tokens back to the config file.
func (r *Runner) persistToken(token *oauth2.Token) {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("ignoring refreshed token", "error", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

func (r *Runner) requireCatalog() (services.Catalog, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: no Spotify token in %s", shared.ErrNotAuthenticated, r.configPath)
	}
	return r.catalog, nil
}

// database opens and migrates the history database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	r.db = db
	r.ownsDB = true
	return db, nil
}

// recorder returns a history recorder, or nil when the database cannot be opened.
func (r *Runner) recorder() tasks.RunRecorder {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("run history disabled", "error", err)
		return nil
	}
	return repositories.NewRunRecorder(repositories.NewRunRepository(db))
}

// generator builds a [tasks.Generator] over catalog from the [generator] and [client] settings.
func (r *Runner) generator(catalog services.Catalog, logger *log.Logger, opts ...func(*tasks.GeneratorOptions)) *tasks.Generator {
	options := tasks.OptionsFromConfig(r.config.Generator, r.config.Client)
	options.Logger = logger
	if rec := r.recorder(); rec != nil {
		options.Recorder = rec
	}
	for _, opt := range opts {
		opt(&options)
	}
	return tasks.NewGenerator(catalog, options)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
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
