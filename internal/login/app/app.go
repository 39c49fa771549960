package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironveil/warden/internal/login/domain"
	httpapi "github.com/ironveil/warden/internal/login/http"
	"github.com/ironveil/warden/internal/login/service"
	"github.com/ironveil/warden/internal/login/store"
	"github.com/ironveil/warden/internal/login/store/drivers/sqlite"
	"github.com/ironveil/warden/pkg/cryptox"
	"github.com/ironveil/warden/pkg/idx"
	"github.com/ironveil/warden/pkg/jwtx"
	"github.com/ironveil/warden/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the login service together: store, signer, services,
// router, and the background housekeeping worker.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.HS256Signer

	broadcaster  *service.SessionBroadcaster
	sessions     *service.SessionService
	orchestrator *service.Orchestrator
	login        *service.LoginService
	totp         *service.TOTPService
	recovery     *service.RecoveryService
	email        *service.EmailCodeService
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "warden",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.seedAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("warden starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully stops the server, the housekeeping worker, and the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down warden...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("warden stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initSigner() error {
	secret := []byte(app.cfg.SessionSecret)
	if len(secret) == 0 {
		// Ephemeral secret: restarting the process invalidates every
		// outstanding session token. Sessions are restarted logins anyway.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		app.logger.Warn("WARDEN_SESSION_SECRET not set, using ephemeral secret")
	}

	signer, err := jwtx.NewHS256Signer(secret, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}
	app.signer = signer
	return nil
}

func (app *Application) initServices() {
	app.broadcaster = service.NewSessionBroadcaster()
	app.broadcaster.Subscribe(service.AuditSubscriber(app.logger))

	app.sessions = &service.SessionService{
		Store:       app.db,
		Signer:      app.signer,
		Broadcaster: app.broadcaster,
		Issuer:      app.cfg.Issuer,
		SessionTTL:  app.cfg.SessionTTL,
	}

	app.recovery = &service.RecoveryService{Store: app.db}
	app.totp = &service.TOTPService{
		Store:    app.db,
		Recovery: app.recovery,
		Issuer:   app.cfg.Issuer,
	}
	app.email = &service.EmailCodeService{
		Store:  app.db,
		Sender: service.LogSender{},
	}

	app.orchestrator = service.NewOrchestrator(
		service.Verifiers{
			TOTP:        app.totp,
			SecurityKey: service.UnconfiguredSecurityKeyVerifier{},
			Email:       app.email,
			Recovery:    app.recovery,
		},
		app.sessions,
		service.NewCapabilityRegistry(),
	)
	app.orchestrator.Ceiling = app.cfg.AttemptCeiling
	app.orchestrator.TTL = app.cfg.AttemptTTL

	app.login = &service.LoginService{
		Credentials:  &service.PasswordVerifier{Store: app.db},
		Orchestrator: app.orchestrator,
		Sessions:     app.sessions,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.orchestrator,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// seedAdmin creates the first user on an empty database so the service is
// usable straight after deployment.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.SeedAdminPassword == "" {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(app.cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash seed admin password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     app.cfg.SeedAdminUsername,
		PasswordHash: hash,
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := app.db.Users().CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	app.logger.Info("seeded initial admin user", "username", user.Username)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.LoginService = app.login
	router.Orchestrator = app.orchestrator
	router.SessionService = app.sessions
	router.TOTPService = app.totp
	router.RecoveryService = app.recovery
	router.EmailService = app.email
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
