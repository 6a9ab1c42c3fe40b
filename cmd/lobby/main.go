package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-lobby"
	"github.com/goliatone/go-lobby/backend"
	"github.com/goliatone/go-lobby/provider/firebase"
	"github.com/goliatone/go-lobby/social"
	"github.com/goliatone/go-lobby/social/providers/facebook"
	"github.com/goliatone/go-lobby/social/providers/google"
	"github.com/goliatone/go-lobby/store"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/hkdf"
)

const csrfLocalsKey = "csrf"

type App struct {
	config   *AppConfig
	db       *bun.DB
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *lobby.RegistrationMetrics
	popup    *social.PopupFlow
	identity *firebase.IdentityProvider
	records  lobby.RecordCreator
	verify   lobby.VerificationSink
	ledger   lobby.OrphanLedger
	session  *lobby.SessionBoundary
	activity lobby.ActivitySink
	srv      router.Server[*fiber.App]
}

func main() {
	configPath := flag.String("config", os.Getenv("LOBBY_CONFIG"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	configureLogger(cfg.Log, cfg.Server.Debug)

	if cfg.Server.Debug {
		fmt.Println(print.MaybeHighlightJSON(redacted(cfg)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := &App{
		config:   cfg,
		registry: registry,
		metrics:  lobby.NewRegistrationMetrics(registry),
		activity: activityLog{logger: named("activity")},
	}

	steps := []func(context.Context, *App) error{
		WithPersistence,
		WithOrphanLedger,
		WithSocialPopup,
		WithIdentityProvider,
		WithRecords,
		WithHTTPServer,
	}
	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			logrusLogger.WithError(err).Fatal("lobby startup failed")
		}
	}

	go app.reapOrphans(ctx)

	go func() {
		if err := app.srv.Serve(cfg.Server.Addr); err != nil {
			logrusLogger.WithError(err).Error("http server stopped")
		}
	}()
	logrusLogger.WithField("addr", cfg.Server.Addr).Info("lobby listening")

	sig := WaitExitSignal()
	logrusLogger.WithField("signal", sig.String()).Info("shutting down")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		logrusLogger.WithError(err).Error("http server shutdown")
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	_ = app.db.Close()
}

// WithPersistence opens the local database and applies the lobby
// migrations.
func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.config.Database
	sqldb, err := sql.Open(cfg.GetDriver(), cfg.GetServer())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	store.RegisterModels()
	client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := store.Migrate(ctx, client); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		logrusLogger.WithField("report", report.String()).Info("migrations applied")
	}

	app.db = client.DB()
	return nil
}

// WithOrphanLedger uses redis when configured so every instance reaps
// the same ledger; otherwise the local database.
func WithOrphanLedger(ctx context.Context, app *App) error {
	rc := app.config.Redis
	if rc.Addr == "" {
		app.ledger = store.NewOrphanLedger(app.db)
		return nil
	}

	app.redis = redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	app.ledger = store.NewRedisOrphanLedger(app.redis, rc.Prefix, app.config.Orphans.ResolvedTTL)
	return nil
}

// WithSocialPopup registers the configured social providers.
func WithSocialPopup(_ context.Context, app *App) error {
	sc := app.config.Social
	encKey, err := deriveKey(sc.StateSecret, "lobby-state-enc")
	if err != nil {
		return err
	}
	macKey, err := deriveKey(sc.StateSecret, "lobby-state-mac")
	if err != nil {
		return err
	}
	states := social.NewEncryptedStateManager(encKey, macKey, sc.StateTTL)

	app.popup = social.NewPopupFlow(states)
	base := app.config.Server.BaseURL

	if sc.Google.ClientID != "" {
		app.popup.Register(google.New(google.Config{
			ClientID:     sc.Google.ClientID,
			ClientSecret: sc.Google.ClientSecret,
			CallbackURL:  base + "/auth/social/google/callback",
		}))
	}
	if sc.Facebook.AppID != "" {
		app.popup.Register(facebook.New(facebook.Config{
			AppID:       sc.Facebook.AppID,
			AppSecret:   sc.Facebook.AppSecret,
			CallbackURL: base + "/auth/social/facebook/callback",
		}))
	}

	if len(app.popup.Providers()) == 0 {
		logrusLogger.Warn("no social providers configured, popup sign up disabled")
	}
	return nil
}

// deriveKey expands the configured secret into a 32 byte key per purpose.
func deriveKey(secret, purpose string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}

// WithIdentityProvider connects to Firebase Auth.
func WithIdentityProvider(ctx context.Context, app *App) error {
	client, err := firebase.NewAuthClient(ctx, firebase.Config{
		ProjectID:       app.config.Firebase.ProjectID,
		CredentialsFile: app.config.Firebase.CredentialsFile,
	})
	if err != nil {
		return err
	}
	app.identity = firebase.NewIdentityProvider(client, app.popup, firebase.WithLogger(named("firebase")))
	return nil
}

// WithRecords selects the user-record API client, or the local store.
func WithRecords(_ context.Context, app *App) error {
	bc := app.config.Backend
	if bc.BaseURL == "" {
		app.records = store.NewRecords(app.db)
		app.verify = logVerificationSink{logger: named("verification")}
		return nil
	}

	client := backend.NewClient(bc.BaseURL,
		backend.WithAPIKey(bc.APIKey),
		backend.WithHTTPClient(&http.Client{Timeout: bc.Timeout}),
		backend.WithLogger(named("backend")),
	)
	app.records = client
	app.verify = client
	return nil
}

// WithHTTPServer builds the fiber server and mounts every controller.
func WithHTTPServer(_ context.Context, app *App) error {
	cfg := app.config
	engine := django.NewFileSystem(http.FS(lobby.GetViewsFS()), ".html")
	engine.Reload(cfg.Server.Debug)

	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		a = router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
		a.Use(fiberrecover.New(fiberrecover.Config{EnableStackTrace: cfg.Server.Debug}))
		a.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})))
		a.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:_csrf",
			CookieName:     "lobby_csrf",
			CookieSameSite: "Lax",
			CookieSecure:   cfg.Session.CookieSecure,
			CookieHTTPOnly: true,
			Expiration:     time.Hour,
			ContextKey:     csrfLocalsKey,
		}))
		return a
	})

	app.session = lobby.NewSessionBoundary(cfg.Session, nil, app.orphanHandler(), named("session"))

	r := app.srv.Router()
	r.Use(app.session.Middleware())
	r.Static("/static", ".", router.Static{
		FS:   lobby.GetAssetsFS(),
		Root: ".",
	})

	shell := lobby.NewShell(app.session, nil,
		lobby.WithCSRFLocalsKey(csrfLocalsKey),
		lobby.WithShellLogger(named("shell")),
	)
	shell.Mount(r)

	registrar := lobby.NewRegistrar(app.identity, app.records, app.session.OrphanHandler(),
		lobby.WithRegistrarLogger(named("registrar")),
		lobby.WithRegistrarMetrics(app.metrics),
		lobby.WithRegistrarActivitySink(app.activity),
	)

	lobby.NewAuthController(
		lobby.WithAuthRegistrar(registrar),
		lobby.WithAuthSession(app.session),
		lobby.WithAuthShell(shell),
		lobby.WithAuthPopup(app.popup),
		lobby.WithAuthLogger(named("auth")),
		lobby.WithAuthActivitySink(app.activity),
		lobby.WithAuthDebug(cfg.Server.Debug),
	).RegisterRoutes(r)

	lobby.NewVerificationController(app.session, shell,
		lobby.WithVerificationSink(app.verify),
		lobby.WithPhoneRegion(cfg.Verify.PhoneRegion),
		lobby.WithVerificationLogger(named("verification")),
	).RegisterRoutes(r)

	return nil
}

// orphanHandler chains the configured policies in order.
func (app *App) orphanHandler() lobby.OrphanHandler {
	handlers := make([]lobby.OrphanHandler, 0, len(app.config.Orphans.Policies)+1)
	for _, policy := range app.config.Orphans.Policies {
		switch policy {
		case PolicyDelete:
			handlers = append(handlers, lobby.DeleteOrphanedIdentity(app.identity))
		case PolicyRetry:
			handlers = append(handlers, lobby.RetryRecordCreation(app.records, lobby.DefaultRetryOptions))
		case PolicyMark:
			handlers = append(handlers, lobby.MarkOrphanForCleanup(app.ledger, nil))
		case PolicyLog:
			handlers = append(handlers, lobby.LogOrphan(named("orphans")))
		}
	}
	return lobby.ChainOrphanHandlers(handlers...)
}

func (app *App) reapOrphans(ctx context.Context) {
	interval := app.config.Orphans.ReapInterval
	if interval <= 0 {
		return
	}
	logger := named("reaper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := lobby.ReapOrphans(ctx, app.ledger, app.identity, app.config.Orphans.ReapBatch, logger)
			if err != nil {
				logger.Error("reap orphans", "error", err)
				continue
			}
			for _, event := range lobby.ReapedEvents(result, time.Now()) {
				_ = app.activity.Record(ctx, event)
			}
			if result.Deleted > 0 || len(result.Failed) > 0 {
				logger.Info("reaped orphans", "deleted", result.Deleted, "skipped", result.Skipped, "failed", len(result.Failed))
			}
		}
	}
}

type activityLog struct {
	logger lobby.Logger
}

func (a activityLog) Record(_ context.Context, event lobby.ActivityEvent) error {
	a.logger.Info("activity", "event", event.EventType, "provider", event.Provider, "uid", event.UserID)
	return nil
}

type logVerificationSink struct {
	logger lobby.Logger
}

func (s logVerificationSink) SubmitVerification(_ context.Context, identity *lobby.Identity, step string, values map[string]string) error {
	s.logger.Info("verification step submitted", "uid", identity.UID, "step", step, "fields", len(values))
	return nil
}

func redacted(cfg *AppConfig) AppConfig {
	out := *cfg
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.Session.SigningKey = mask(out.Session.SigningKey)
	out.Social.StateSecret = mask(out.Social.StateSecret)
	out.Social.Google.ClientSecret = mask(out.Social.Google.ClientSecret)
	out.Social.Facebook.AppSecret = mask(out.Social.Facebook.AppSecret)
	out.Backend.APIKey = mask(out.Backend.APIKey)
	out.Redis.Password = mask(out.Redis.Password)
	return out
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
