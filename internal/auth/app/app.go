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

	"github.com/aussiebroadwan/gatekeeper/internal/auth/blob"
	httpapi "github.com/aussiebroadwan/gatekeeper/internal/auth/http"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/mail"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/service"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/throttle"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	redis "github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	appName = "Gatekeeper"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       *sqlite.Store
	hasher   *cryptox.Hasher
	signer   jwtx.Signer
	verifier jwtx.Verifier
	mailer   *mail.Mailer
	blob     blob.Storage // nil when storage is not configured
	redis    *redis.Client

	general httpx.Throttler
	strict  httpx.Throttler

	readyChecks map[string]httpapi.Pinger

	// Services
	authz               *service.AuthorizationService
	userService         *service.UserService
	rolesService        *service.RolesService
	permissionService   *service.PermissionService
	authService         *service.AuthService
	sessionService      *service.SessionService
	fileService         *service.FileService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialised. The
// database is migrated and seeded before it returns.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatekeeper",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		readyChecks: map[string]httpapi.Pinger{},
	}
	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCrypto(); err != nil {
		app.closeAll()
		return nil, err
	}
	app.initThrottlers()
	if err := app.initMail(); err != nil {
		app.closeAll()
		return nil, err
	}
	if err := app.initStorage(ctx); err != nil {
		app.closeAll()
		return nil, err
	}

	app.initServices()
	if err := app.seed(ctx); err != nil {
		app.closeAll()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		app.closeAll()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

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
			app.housekeepingService.Stop()
			app.closeAll()
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

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeAll(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// closeAll releases the database and the Redis connection, if any.
func (app *Application) closeAll() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(app.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	signer, err := jwtx.NewSignerHS256([]byte(app.cfg.JWTSecret))
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer
	app.verifier = jwtx.NewVerifierHS256([]byte(app.cfg.JWTSecret), app.cfg.JWTIssuer)
	return nil
}

// initThrottlers shares windows through Redis when REDIS_ADDR is set and
// falls back to per-process memory otherwise.
func (app *Application) initThrottlers() {
	general := throttle.Config{TTL: app.cfg.ThrottleTTL, Limit: app.cfg.ThrottleLimit}
	strict := throttle.Config{TTL: app.cfg.ThrottleTTL, Limit: app.cfg.ThrottleStrict}

	if app.cfg.RedisAddr == "" {
		app.general = throttle.NewMemory(general)
		app.strict = throttle.NewMemory(strict)
		app.logger.Info("throttling with in-memory windows", "limit", general.Limit, "strict_limit", strict.Limit)
		return
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
	})
	app.general = throttle.NewRedis(app.redis, "throttle", general)
	app.strict = throttle.NewRedis(app.redis, "throttle:strict", strict)
	app.readyChecks["redis"] = httpapi.PingFunc(func(ctx context.Context) error {
		return app.redis.Ping(ctx).Err()
	})
	app.logger.Info("throttling with redis windows", "addr", app.cfg.RedisAddr)
}

func (app *Application) initMail() error {
	if app.cfg.SMTPHost == "" {
		app.mailer = mail.NewMailer(mail.LogTransport{Level: slog.LevelInfo}, appName)
		app.logger.Warn("SMTP_HOST not set, outgoing mail is logged instead of sent")
		return nil
	}

	t, err := mail.NewSMTPTransport(mail.SMTPConfig{
		Host:          app.cfg.SMTPHost,
		Port:          app.cfg.SMTPPort,
		Username:      app.cfg.SMTPUsername,
		Password:      app.cfg.SMTPPassword,
		From:          app.cfg.SMTPFrom,
		RatePerSecond: app.cfg.SMTPRatePerSecond,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize mail transport: %w", err)
	}
	app.mailer = mail.NewMailer(t, appName)
	return nil
}

func (app *Application) initStorage(ctx context.Context) error {
	if app.cfg.StorageEndpoint == "" {
		app.logger.Info("STORAGE_ENDPOINT not set, file routes disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s, err := blob.NewMinioStorage(ctx, blob.MinioConfig{
		Endpoint:  app.cfg.StorageEndpoint,
		AccessKey: app.cfg.StorageAccessKey,
		SecretKey: app.cfg.StorageSecretKey,
		Bucket:    app.cfg.StorageBucket,
		UseSSL:    app.cfg.StorageUseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize file storage: %w", err)
	}
	app.blob = s
	app.readyChecks["storage"] = s
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.authz = &service.AuthorizationService{}

	if app.blob != nil {
		app.fileService = &service.FileService{
			Store:        app.db,
			Blob:         app.blob,
			Authz:        app.authz,
			SignedURLTTL: app.cfg.StorageSignedURLTTL,
		}
	}

	app.userService = &service.UserService{
		Store:  app.db,
		Hasher: app.hasher,
		Authz:  app.authz,
		Mailer: app.mailer,
		Files:  app.fileService,
	}
	app.rolesService = &service.RolesService{Store: app.db, Authz: app.authz}
	app.permissionService = &service.PermissionService{Store: app.db}
	app.authService = &service.AuthService{
		Store:  app.db,
		Hasher: app.hasher,
		Mailer: app.mailer,
		Config: service.AuthConfig{
			OTPIssuer:            app.cfg.OTPIssuer,
			OTPStep:              uint(app.cfg.OTPStep),
			OTPDigits:            app.cfg.OTPDigits,
			OTPTTL:               app.cfg.OTPExpiration,
			RefreshTTL:           time.Duration(app.cfg.RefreshTokenDays) * 24 * time.Hour,
			EmailVerificationTTL: app.cfg.EmailVerifyTTL,
			PasswordResetTTL:     app.cfg.PasswordResetTTL,
			PasswordResetURL:     app.cfg.PasswordResetURL,
		},
	}
	app.sessionService = &service.SessionService{
		Users:     app.userService,
		Auth:      app.authService,
		Signer:    app.signer,
		Issuer:    app.cfg.JWTIssuer,
		AccessTTL: app.cfg.AccessTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) seed(ctx context.Context) error {
	seeder := &service.SeedService{
		Store:  app.db,
		Hasher: app.hasher,
		Admin: service.AdminSeed{
			Email:     app.cfg.AdminEmail,
			Password:  app.cfg.AdminPassword,
			FirstName: app.cfg.AdminFirstName,
			LastName:  app.cfg.AdminLastName,
		},
	}
	if err := seeder.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	router := httpapi.NewRouter(app.verifier, BuildVersion, app.db, app.logger)

	if len(app.cfg.TrustedProxies) > 0 {
		proxies, err := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
		if err != nil {
			return fmt.Errorf("invalid trusted proxies: %w", err)
		}
		router.ClientIP = httpx.TrustedProxyIPKeyExtractor(proxies)
		app.logger.Info("honouring forwarded client addresses", "trusted_proxies", app.cfg.TrustedProxies)
	}

	router.UserService = app.userService
	router.RolesService = app.rolesService
	router.PermissionService = app.permissionService
	router.AuthService = app.authService
	router.SessionService = app.sessionService
	router.Authz = app.authz
	router.FileService = app.fileService
	router.MaxUploadBytes = app.cfg.MaxUploadBytes
	router.Throttler = app.general
	router.AuthThrottler = app.strict
	router.IgnoreUserAgents = app.cfg.ThrottleIgnoreUA
	router.ReadyChecks = app.readyChecks
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

// Handler exposes the routed HTTP handler, for running the application
// behind a test server.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Close releases resources without touching the HTTP server. Use it when
// the application was never Run.
func (app *Application) Close() error {
	return app.closeAll()
}
