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

	httpapi "github.com/aussiebroadwan/haulage/internal/auth/http"
	"github.com/aussiebroadwan/haulage/internal/auth/notify"
	"github.com/aussiebroadwan/haulage/internal/auth/revocation"
	"github.com/aussiebroadwan/haulage/internal/auth/service"
	"github.com/aussiebroadwan/haulage/internal/auth/store"
	"github.com/aussiebroadwan/haulage/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/haulage/pkg/clockx"
	"github.com/aussiebroadwan/haulage/pkg/cryptox"
	"github.com/aussiebroadwan/haulage/pkg/jwtx"
	"github.com/aussiebroadwan/haulage/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clockx.Clock

	// Core dependencies
	db          store.Store
	credentials *jwtx.Credentials
	revocation  *revocation.Client
	memory      *revocation.MemoryBackend // nil when Redis is configured
	kafka       *notify.KafkaPublisher    // nil when KAFKA_BROKERS is empty
	notifier    notify.Notifier
	alerts      notify.AlertSink

	// Services
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg:   cfg,
		clock: clockx.System{},
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initCredentials(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initRevocation()
	app.initNotify()

	if err := app.initServices(); err != nil {
		app.closeDependencies()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

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

		// Perform graceful shutdown
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

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Reset mails still being prepared need the stores below
	app.sessionService.Wait()

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if err := app.closeDependencies(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// closeDependencies releases everything initDatabase, initRevocation and
// initNotify opened. The first database error is returned, the rest are logged.
func (app *Application) closeDependencies() error {
	if app.kafka != nil {
		if err := app.kafka.Close(); err != nil {
			app.logger.Error("error closing kafka writer", "error", err)
		}
	}
	if app.revocation != nil {
		if err := app.revocation.Close(); err != nil {
			app.logger.Error("error closing revocation store", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			return err
		}
	}
	return nil
}

// initCredentials resolves signing secrets and token lifetimes
func (app *Application) initCredentials() error {
	secrets, err := LoadSecrets(app.cfg, app.logger)
	if err != nil {
		return err
	}

	creds, err := jwtx.NewCredentials(jwtx.CredentialOptions{
		Secrets:    secrets,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		Clock:      app.clock,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize credentials: %w", err)
	}
	app.credentials = creds

	app.logger.Info("credentials ready",
		"issuer", app.cfg.Issuer,
		"access_ttl", creds.AccessTTL(),
		"refresh_ttl", creds.RefreshTTL(),
		"ephemeral", secrets.Ephemeral,
	)
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		app.cfg.DatabaseFile,
	)
	db, err := sqlite.NewStore(dsn)
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

// initRevocation picks Redis when configured and the in-process store
// otherwise. The Redis connection is made lazily on first use.
func (app *Application) initRevocation() {
	var backend revocation.Backend
	if app.cfg.RedisAddr != "" {
		backend = revocation.NewRedisBackend(revocation.RedisConfig{
			Addr:       app.cfg.RedisAddr,
			Password:   app.cfg.RedisPassword,
			DB:         app.cfg.RedisDB,
			MaxRetries: app.cfg.RedisMaxRetries,
			BackoffMax: app.cfg.RedisBackoffMax,
			Logger:     app.logger,
		})
		app.logger.Info("revocation store: redis", "addr", app.cfg.RedisAddr, "db", app.cfg.RedisDB)
	} else {
		app.memory = revocation.NewMemoryBackend(app.clock)
		backend = app.memory
		app.logger.Warn("revocation store: in-memory, revocations are lost on restart and not shared between replicas")
	}

	app.revocation = revocation.NewClient(backend, revocation.Options{
		Prefix:  app.cfg.RedisKeyPrefix,
		Timeout: app.cfg.StoreTimeout,
		Logger:  app.logger,
	})
}

// initNotify publishes to Kafka when brokers are configured and logs otherwise
func (app *Application) initNotify() {
	if len(app.cfg.KafkaBrokers) == 0 {
		sink := notify.NewLogSink(app.logger)
		app.notifier = sink
		app.alerts = sink
		app.logger.Info("notifications: log sink")
		return
	}

	app.kafka = notify.NewKafkaPublisher(
		notify.NewKafkaWriter(app.cfg.KafkaBrokers),
		notify.KafkaConfig{
			Brokers:     app.cfg.KafkaBrokers,
			NotifyTopic: app.cfg.KafkaNotifyTopic,
			AlertTopic:  app.cfg.KafkaAlertTopic,
		},
		app.logger,
	)
	app.notifier = app.kafka
	app.alerts = app.kafka
	app.logger.Info("notifications: kafka", "brokers", app.cfg.KafkaBrokers)
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	resetTTL, err := jwtx.ParseTTL(app.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("RESET_TOKEN_TTL: %w", err)
	}

	app.sessionService = &service.SessionService{
		Store:       app.db,
		Credentials: app.credentials,
		Revocation:  app.revocation,
		Guard: &service.AttemptGuard{
			Attempts:    app.db.LoginAttempts(),
			MaxAttempts: app.cfg.LoginMaxAttempts,
			Window:      app.cfg.LoginWindow,
			Clock:       app.clock,
			Timeout:     app.cfg.DirectoryTimeout,
		},
		Notifier:         app.notifier,
		Alerts:           app.alerts,
		Clock:            app.clock,
		ResetTTL:         resetTTL,
		DirectoryTimeout: app.cfg.DirectoryTimeout,
		VerifyTimeout:    app.cfg.PasswordVerifyTimeout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.revocation,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.Clock = app.clock
	// Attempts must outlive the lockout window or lockouts end early
	app.housekeepingService.AttemptRetention = max(service.DefaultAttemptRetention, 2*app.cfg.LoginWindow)
	if app.memory != nil {
		app.housekeepingService.Sweeper = app.memory
	}

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.revocation,
		app.logger,
	)

	// Wire services to router
	router.SessionService = app.sessionService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
