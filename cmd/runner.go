package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jammming/internal/auth"
	"github.com/desertthunder/jammming/internal/server"
	"github.com/desertthunder/jammming/internal/services"
	"github.com/desertthunder/jammming/internal/session"
	"github.com/desertthunder/jammming/internal/shared"
	"github.com/urfave/cli/v3"
)

// defaultAuthTimeout bounds how long a command waits for the consent callback.
const defaultAuthTimeout = 2 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session (storage, controller, executor) is built on first use so that commands like
// setup work without credentials.
type Runner struct {
	config      *shared.Config
	logger      *log.Logger
	output      io.Writer
	httpClient  *http.Client
	navigator   auth.Navigator
	authTimeout time.Duration
	sessionID   string

	storage    session.Storage
	release    func() error
	controller *auth.Controller
	spotify    *services.SpotifyService
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	Logger      *log.Logger
	Output      io.Writer
	HTTPClient  *http.Client
	Navigator   auth.Navigator
	Storage     session.Storage
	AuthTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = defaultAuthTimeout
	}

	id := shared.GenerateID()
	return &Runner{
		config:      opts.Config,
		logger:      shared.WithLogger(opts.Logger, "session", id[:8]),
		output:      opts.Output,
		httpClient:  opts.HTTPClient,
		navigator:   opts.Navigator,
		authTimeout: opts.AuthTimeout,
		sessionID:   id,
		storage:     opts.Storage,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		searchCommand, saveCommand, authCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		r.config = r.loadConfig(cmd.String("config"))
	}

	level := r.config.Log.Level
	if flag := cmd.String("log-level"); flag != "" {
		level = flag
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	return ctx, nil
}

// After releases the session storage.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.release == nil {
		return nil
	}
	return r.release()
}

func (r *Runner) loadConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// SetLogger swaps the logger, e.g. for a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = shared.WithLogger(logger, "session", r.sessionID[:8])
}

// connect builds the session storage, flow controller and executor once.
func (r *Runner) connect() error {
	if r.controller != nil {
		return nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.storage == nil {
		storage, release, err := session.Open(r.config.Session.Storage)
		if err != nil {
			return err
		}
		r.storage, r.release = storage, release
	}

	location, err := auth.NewTracker(r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return err
	}

	navigator := r.navigator
	if navigator == nil {
		navigator = auth.NewBrowserNavigator(r.output, r.logger)
	}

	creds := r.config.Credentials.Spotify
	controller, err := auth.NewController(auth.Options{
		ClientID:    creds.ClientID,
		RedirectURI: creds.RedirectURI,
		Scopes:      creds.Scopes,
		AuthURL:     r.config.Spotify.AuthURL,
		TokenURL:    r.config.Spotify.TokenURL,
		Store:       session.NewTokenStore(r.storage, nil),
		Location:    location,
		Navigator:   navigator,
		HTTPClient:  r.httpClient,
		Logger:      r.logger,
	})
	if err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(services.Options{
		Tokens:      controller,
		APIURL:      r.config.Spotify.APIURL,
		HTTPClient:  r.httpClient,
		RateLimit:   r.config.Client.RateLimit,
		Logger:      r.logger,
		Description: r.config.Playlist.Description,
		Public:      r.config.Playlist.Public,
	})
	if err != nil {
		return err
	}

	r.controller = controller
	r.spotify = spotify
	r.logger.Debug("session ready", "storage", r.config.Session.Storage)
	return nil
}

// listen starts the callback server on the redirect URI's address.
func (r *Runner) listen() (*server.Server, *server.CallbackHandler, error) {
	handler := server.NewCallbackHandler(r.config.CallbackPath(), r.controller, r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger), server.RequestLogger(r.logger))
	router.Handler(handler)

	srv, err := server.Listen(r.config.CallbackAddr(), router, r.logger)
	if err != nil {
		return nil, nil, err
	}
	return srv, handler, nil
}

// authorize returns a usable access token, running the consent round-trip when the session needs it.
func (r *Runner) authorize(ctx context.Context) (auth.Result, error) {
	if err := r.connect(); err != nil {
		return auth.Result{}, err
	}

	// the listener has to be up before the browser is sent anywhere
	srv, handler, err := r.listen()
	if err != nil {
		return auth.Result{}, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	res, err := r.controller.EnsureToken(ctx)
	if err != nil || !res.Redirecting() {
		return res, err
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", r.authTimeout)

	waitCtx, cancel := context.WithTimeout(ctx, r.authTimeout)
	defer cancel()

	res, err = handler.Wait(waitCtx, srv.Errors())
	if err != nil {
		return auth.Result{}, fmt.Errorf("authorization failed: %w", err)
	}
	return res, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
