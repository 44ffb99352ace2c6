package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/propinvite/internal/invites/http"
	"github.com/aussiebroadwan/propinvite/internal/invites/metrics"
	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
	"github.com/aussiebroadwan/propinvite/internal/invites/store/drivers/sqlite"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
	"github.com/aussiebroadwan/propinvite/pkg/httpx"
	"github.com/aussiebroadwan/propinvite/pkg/jwtx"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

// BuildVersion is overridden at build time with
// -ldflags "-X github.com/aussiebroadwan/propinvite/internal/invites/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the invite service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	codec   *cryptox.TokenCodec
	metrics *metrics.Metrics

	// Services
	guard        *service.AbuseGuard
	monitor      *service.RolloutMonitor
	flags        *service.FlagCache
	validator    *service.InviteValidator
	issuer       *service.InviteIssuer
	acceptor     *service.InviteAcceptor
	controller   *service.RolloutController
	housekeeping *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router

	workersStarted bool
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "invite-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	httpx.LoadRateLimitsFromEnv()

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()
	if err := app.controller.Start(); err != nil {
		app.housekeeping.Stop()
		return err
	}
	app.workersStarted = true

	app.logger.Info("invite service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.controller.Stop()
			app.housekeeping.Stop()
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

// Shutdown drains in-flight requests, stops the background workers and
// closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down invite service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.workersStarted {
		app.controller.Stop()
		app.housekeeping.Stop()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("invite service stopped")
	return nil
}

// initDatabase opens the database, applies migrations and loads the seed
// file when one is configured.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
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

	if app.cfg.SeedFile == "" {
		return nil
	}
	seed, err := ReadSeed(app.cfg.SeedFile)
	if err == nil {
		err = seed.Apply(context.Background(), db)
	}
	if err != nil {
		_ = db.Close()
		return err
	}
	app.logger.Info("seed applied",
		slog.Int("profiles", len(seed.Profiles)),
		slog.Int("properties", len(seed.Properties)),
	)
	return nil
}

// initServices builds the token codec and every business service.
func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.codec, err = cryptox.NewTokenCodec(app.cfg.TokenAlphabet, app.cfg.TokenLength, pepper)
	if err != nil {
		return fmt.Errorf("failed to build token codec: %w", err)
	}

	policy := service.DefaultRolloutPolicy()
	if app.cfg.RolloutPolicyFile != "" {
		if policy, err = service.LoadRolloutPolicy(app.cfg.RolloutPolicyFile); err != nil {
			return err
		}
	}

	retry := app.cfg.RetryPolicy()
	app.metrics = metrics.New()
	app.guard = service.NewAbuseGuard(app.cfg.AbusePolicy(), time.Now)
	app.monitor = service.NewRolloutMonitor(policy, time.Now)
	app.flags = service.NewFlagCache(app.db, app.cfg.FlagCacheTTL, retry, app.logger)

	events := service.MultiSink{app.monitor, app.metrics, service.LogSink{Logger: app.logger}}

	app.validator = service.NewInviteValidator(app.db, app.codec, app.guard, retry, events)
	app.issuer = &service.InviteIssuer{
		Store:  app.db,
		Codec:  app.codec,
		Policy: app.cfg.IssuePolicy(),
		Retry:  retry,
		Now:    time.Now,
	}
	app.acceptor = &service.InviteAcceptor{
		Store:     app.db,
		Validator: app.validator,
		Guard:     app.guard,
		Retry:     retry,
		Events:    events,
		Now:       time.Now,
	}

	app.controller = &service.RolloutController{
		Store:    app.db,
		Monitor:  app.monitor,
		Flags:    app.flags,
		Feature:  app.cfg.RolloutFeature,
		Mode:     service.RolloutMode(app.cfg.RolloutMode),
		Schedule: app.cfg.RolloutSchedule,
		Retry:    retry,
		Logger:   app.logger,
		Now:      time.Now,
		OnChange: app.metrics.ObserveRolloutChange,
	}

	flag, err := app.controller.Flag(context.Background(), app.cfg.RolloutFeature)
	if err != nil {
		return fmt.Errorf("failed to read rollout flag: %w", err)
	}
	app.metrics.RolloutPercent.WithLabelValues(app.cfg.RolloutFeature).Set(float64(flag.Percent))

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.guard,
		app.monitor,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeeping.Retry = retry
	app.housekeeping.AfterSweep = func(trackedKeys int) {
		app.metrics.AbuseKeys.Set(float64(trackedKeys))
	}

	app.logger.Info("services initialized",
		slog.String("rollout_feature", app.cfg.RolloutFeature),
		slog.Int("rollout_percent", flag.Percent),
		slog.String("rollout_mode", app.cfg.RolloutMode),
	)
	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() error {
	verifier, err := jwtx.NewHS256Verifier([]byte(app.cfg.JWTSecret), app.cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("failed to build token verifier: %w", err)
	}

	router := httpapi.NewRouter(
		verifier,
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.TrustProxy,
	)

	router.Issuer = app.issuer
	router.Validator = app.validator
	router.Acceptor = app.acceptor
	router.Controller = app.controller
	router.Metrics = app.metrics
	router.Gate = &service.RolloutGate{Flags: app.flags}
	router.Feature = app.cfg.RolloutFeature
	router.FailureFloor = app.cfg.FailureFloor

	if app.cfg.LegacyURL != "" {
		target, err := url.Parse(app.cfg.LegacyURL)
		if err != nil {
			return fmt.Errorf("legacy url: %w", err)
		}
		router.Legacy = httpapi.NewLegacyProxy(target)
		app.logger.Info("legacy invite backend configured", slog.String("url", target.Redacted()))
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
