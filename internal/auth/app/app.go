package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/tokengate/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/tokengate/internal/auth/http"
	"github.com/aussiebroadwan/tokengate/internal/auth/revocation"
	"github.com/aussiebroadwan/tokengate/internal/auth/service"
	"github.com/aussiebroadwan/tokengate/internal/auth/store"
	"github.com/aussiebroadwan/tokengate/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tokengate/pkg/cryptox"
	"github.com/aussiebroadwan/tokengate/pkg/httpx"
	"github.com/aussiebroadwan/tokengate/pkg/jwtx"
	"github.com/aussiebroadwan/tokengate/pkg/kvx"
	"github.com/aussiebroadwan/tokengate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	redisKeyPrefix = "tokengate"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	kv          kvx.Store
	revocations *revocation.Store
	codec       jwtx.Codec
	passwords   *cryptox.PasswordHasher

	// Services
	tokenService        *service.TokenService
	authService         *service.AuthService
	accountService      *service.AccountService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService // nil when the backend expires keys itself

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tokengate",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.passwords = cryptox.NewPasswordHasher(pepper)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := app.initRevocations(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	codec, err := InitCodec(cfg, app.logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	app.initServices()

	if err := app.bootstrap(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.router.Close()

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}

	if err := app.kv.Close(); err != nil {
		app.logger.Error("error closing revocation store", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initRevocations connects the key-value backend behind the blacklist and
// refresh sessions.
func (app *Application) initRevocations(ctx context.Context) error {
	switch app.cfg.RevocationBackend {
	case "redis":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		kv, err := kvx.DialRedis(dialCtx, kvx.RedisOptions{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
			Timeout:  app.cfg.RedisTimeout,
		}, redisKeyPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.kv = kv

	case "memory", "":
		app.kv = kvx.NewMemoryStore()
		app.logger.Warn("using in-memory revocation store, revocations do not survive restarts")

	default:
		return fmt.Errorf("unknown revocation backend %q", app.cfg.RevocationBackend)
	}

	app.revocations = revocation.New(app.kv)
	app.logger.Info("revocation store ready", "backend", app.cfg.RevocationBackend)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Codec:       app.codec,
		Revocations: app.revocations,
		Users:       app.db.Users(),
		Issuer:      app.cfg.Issuer,
		AccessTTL:   app.cfg.AccessTTL,
		RefreshTTL:  app.cfg.RefreshTTL,
	}

	app.authService = &service.AuthService{
		Users:     app.db.Users(),
		Tokens:    app.tokenService,
		Passwords: app.passwords,
	}
	app.accountService = &service.AccountService{
		Users:  app.db.Users(),
		Tokens: app.tokenService,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:     app.db,
		Passwords: app.passwords,
	}

	// Redis expires keys on its own; only the in-process cache needs sweeping.
	if sweeper, ok := app.kv.(kvx.Sweeper); ok {
		app.housekeepingService = service.NewHousekeepingService(
			sweeper,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
	}
}

// bootstrap creates the first administrator when one is configured and the
// user table is still empty.
func (app *Application) bootstrap(ctx context.Context) error {
	if app.cfg.BootstrapAdminUsername == "" {
		return nil
	}

	err := app.bootstrapService.EnsureAdmin(ctx, domain.BootstrapAdmin{
		Username: app.cfg.BootstrapAdminUsername,
		Password: app.cfg.BootstrapAdminPassword,
	})
	switch {
	case err == nil:
		app.logger.Info("bootstrap admin created", "username", app.cfg.BootstrapAdminUsername)
	case errors.Is(err, service.ErrBootstrapAlready):
		app.logger.Debug("users exist, skipping bootstrap admin")
	default:
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}

func (app *Application) closeStores() {
	_ = app.kv.Close()
	_ = app.db.Close()
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	httpx.TrustProxyHeaders = app.cfg.TrustProxyHeaders
	if app.cfg.TrustProxyHeaders {
		app.logger.Info("rate limits keyed on proxy headers")
	}

	router := httpapi.NewRouter(
		app.tokenService,
		app.authService,
		app.accountService,
		app.db,
		app.revocations,
		BuildVersion,
		app.logger,
	)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
