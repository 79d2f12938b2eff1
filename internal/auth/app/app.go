package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	httpapi "github.com/crissvargas/realestate/internal/auth/http"
	"github.com/crissvargas/realestate/internal/auth/metrics"
	"github.com/crissvargas/realestate/internal/auth/service"
	"github.com/crissvargas/realestate/internal/auth/store"
	"github.com/crissvargas/realestate/internal/auth/store/drivers/postgres"
	"github.com/crissvargas/realestate/internal/auth/store/drivers/sqlite"
	"github.com/crissvargas/realestate/pkg/cryptox"
	"github.com/crissvargas/realestate/pkg/httpx"
	"github.com/crissvargas/realestate/pkg/jwtx"
	"github.com/crissvargas/realestate/pkg/notify"
	"github.com/crissvargas/realestate/pkg/slogx"
)

// BuildVersion is overridden at build time via
// -ldflags "-X github.com/crissvargas/realestate/internal/auth/app.BuildVersion=...".
var BuildVersion = "v1.0.0"

// SweepDisabled turns the scheduled code sweep off.
const SweepDisabled = "off"

const (
	storeConnectAttempts = 8
	storeConnectBackoff  = 250 * time.Millisecond
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	metrics  *metrics.Metrics
	sessions *jwtx.HS256
	sender   notify.Sender

	authService *service.AuthService
	sweeper     *service.CodeSweeper

	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg and installs it as the
// slog default.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "realestate-auth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized.
// The store is migrated before New returns.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg, logger: logger}

	db, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := app.initServices(); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// OpenStore connects the configured driver and applies migrations. Postgres
// is retried with backoff so the service can start alongside its database.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (store.Store, error) {
	var db store.Store

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		backoff := retry.WithMaxRetries(storeConnectAttempts, retry.NewExponential(storeConnectBackoff))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := pg.Ping(ctx); err != nil {
				logger.Warn("database not reachable yet", slog.Any("error", err))
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		db = pg
	default:
		lite, err := sqlite.NewStore(cfg.DatabaseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		db = lite
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully", slog.String("driver", cfg.DatabaseDriver))
	return db, nil
}

// NewSender builds the configured delivery provider.
func NewSender(cfg Config, logger *slog.Logger) (notify.Sender, error) {
	switch cfg.NotifyProvider {
	case ProviderSMTP:
		return notify.NewSMTPSender(cfg.smtpConfig())
	case ProviderPostmark:
		return notify.NewPostmarkSender(cfg.postmarkConfig())
	case ProviderOutbox:
		return notify.NewOutboxSender(cfg.OutboxFile)
	case ProviderLog:
		return &notify.LogSender{Logger: logger, IncludeBody: cfg.Env == "dev"}, nil
	default:
		return nil, fmt.Errorf("%w: unknown notify provider %q", ErrInvalidConfig, cfg.NotifyProvider)
	}
}

func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}

	app.sessions, err = jwtx.NewHS256(jwtx.HS256Config{
		Secret: []byte(app.cfg.JWTSecret),
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize session tokens: %w", err)
	}

	app.sender, err = NewSender(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize %s sender: %w", app.cfg.NotifyProvider, err)
	}

	app.metrics = metrics.New()

	app.authService = &service.AuthService{
		Store: app.db,
		Hasher: cryptox.NewPasswordHasher(cryptox.Argon2Params{
			Memory:      app.cfg.Argon2MemoryKiB,
			Iterations:  app.cfg.Argon2Iterations,
			Parallelism: app.cfg.Argon2Parallelism,
		}, pepper),
		Sender:          app.sender,
		Sessions:        app.sessions,
		Metrics:         app.metrics,
		CodeTTL:         app.cfg.CodeTTL,
		DispatchTimeout: app.cfg.DispatchTimeout,
		MailSubject:     app.cfg.MailSubject,
	}

	if app.cfg.SweepSchedule != SweepDisabled {
		app.sweeper = service.NewCodeSweeper(app.authService,
			service.WithSchedule(app.cfg.SweepSchedule),
			service.WithSweeperLogger(app.logger),
		)
	}

	app.logger.Info("auth services initialized",
		slog.String("notify_provider", app.cfg.NotifyProvider),
		slog.Duration("session_ttl", app.sessions.TTL()),
	)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessions,
		app.db,
		httpx.RateLimitProfilesFromEnv(),
		BuildVersion,
		app.logger,
	)
	router.AuthService = app.authService
	router.Metrics = app.metrics
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Service exposes the auth service for one-shot CLI commands.
func (app *Application) Service() *service.AuthService { return app.authService }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (app *Application) Run(ctx context.Context) error {
	if app.sweeper != nil {
		if err := app.sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start code sweeper: %w", err)
		}
	}

	app.logger.Info("auth service starting", slog.Int("port", app.cfg.Port), slog.String("version", BuildVersion))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		shutdownErr := app.Shutdown()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return multierr.Append(fmt.Errorf("server failed: %w", err), shutdownErr)
		}
		return shutdownErr
	case <-ctx.Done():
		app.logger.Info("shutdown signal received", slog.Any("cause", context.Cause(ctx)))
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the server, the sweeper and the store, collecting every
// failure.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs error
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		errs = multierr.Append(errs, err)
		errs = multierr.Append(errs, app.server.Close())
	}

	if app.sweeper != nil {
		app.sweeper.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slog.Any("error", err))
		errs = multierr.Append(errs, err)
	}

	app.logger.Info("auth service stopped")
	return errs
}

// Close releases the store without starting the server.
func (app *Application) Close() error {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	return app.db.Close()
}
