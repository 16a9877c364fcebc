// Package app wires the session authority together: configuration, stores,
// the session service, and the HTTP server with graceful shutdown.
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

	"github.com/trackcrate/trackcrate/internal/auth/domain"
	httpapi "github.com/trackcrate/trackcrate/internal/auth/http"
	"github.com/trackcrate/trackcrate/internal/auth/service"
	"github.com/trackcrate/trackcrate/internal/auth/store"
	"github.com/trackcrate/trackcrate/internal/auth/store/drivers/memory"
	redisstore "github.com/trackcrate/trackcrate/internal/auth/store/drivers/redis"
	"github.com/trackcrate/trackcrate/internal/auth/store/drivers/sqlite"
	"github.com/trackcrate/trackcrate/pkg/cryptox"
	"github.com/trackcrate/trackcrate/pkg/idx"
	"github.com/trackcrate/trackcrate/pkg/jwtx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    *sqlite.Store
	creds store.CredentialStore

	sessions *service.SessionService

	server *http.Server
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "trackcrate-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initCredentialStore()

	if err := app.seedAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		_ = app.creds.Close()
		return nil, err
	}

	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		_ = app.creds.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.creds.Close(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase opens the user database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initCredentialStore picks Redis when an address is configured, otherwise
// the in-process store. The in-process store loses all sessions on restart,
// which only forces re-login, so it is an acceptable single-node default.
func (app *Application) initCredentialStore() {
	if app.cfg.RedisAddr == "" {
		app.logger.Info("credential store: in-process (no AUTH_REDIS_ADDR configured)")
		app.creds = memory.NewStore()
		return
	}

	app.logger.Info("credential store: redis", "addr", app.cfg.RedisAddr, "db", app.cfg.RedisDB)
	app.creds = redisstore.NewStore(redisstore.Config{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
}

// seedAdmin creates the configured admin account when the user table is
// empty. A fresh deployment is unusable without at least one account.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.AdminUsername == "" || app.cfg.AdminPassword == "" {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect user table: %w", err)
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(app.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := domain.User{
		ID:           idx.New().String(),
		Username:     app.cfg.AdminUsername,
		PasswordHash: hash,
		Roles:        []string{"admin"},
	}
	if err := app.db.Users().CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	app.logger.Info("seeded admin account", "username", admin.Username, "id", admin.ID)
	return nil
}

// initHTTP builds the signer, the session service, and the HTTP server.
func (app *Application) initHTTP() error {
	secret := []byte(app.cfg.TokenSecret)

	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	verifier := jwtx.NewCommonHS256(secret, app.cfg.Issuer)

	app.sessions = &service.SessionService{
		Signer:      signer,
		Verifier:    verifier,
		Users:       app.db.Users(),
		Credentials: app.creds,
		Issuer:      app.cfg.Issuer,
		AccessTTL:   app.cfg.AccessTTL,
		RefreshTTL:  app.cfg.RefreshTTL,
	}

	handler := httpapi.NewRouter(
		app.logger,
		app.sessions,
		app.db,
		verifier,
		httpapi.DefaultRateLimits(),
		BuildVersion,
	)

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return nil
}
