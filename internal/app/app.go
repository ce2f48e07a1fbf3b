package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/bookshare/internal/catalog"
	"github.com/MrSnakeDoc/bookshare/internal/config"
	"github.com/MrSnakeDoc/bookshare/internal/feed"
	"github.com/MrSnakeDoc/bookshare/internal/httpserver"
	"github.com/MrSnakeDoc/bookshare/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
	"github.com/MrSnakeDoc/bookshare/internal/scheduler"
	"github.com/MrSnakeDoc/bookshare/internal/sources/seed"
	"github.com/MrSnakeDoc/bookshare/internal/store"
	"github.com/MrSnakeDoc/bookshare/internal/version"
)

// retryJitter spreads concurrent retries of the same ISBN apart.
const retryJitter = 0.3

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	server   *httpserver.Server
	provider *store.Provider
	hub      *feed.Hub
	auditor  *scheduler.Auditor
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the ledger store early - fail fast if unavailable
	loggerClient.Info("opening ledger store", logger.String("store", cfg.Store))
	provider := store.NewProvider(cfg, loggerClient)
	table, err := provider.Table(context.Background())
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.Store, err)
		os.Exit(1)
	}

	if cfg.SeedFile != "" {
		if err := seedLedger(table, cfg.SeedFile, loggerClient); err != nil {
			loggerClient.Errorf("Failed to seed ledger: %v", err)
			provider.Close()
			os.Exit(1)
		}
	}

	hub := feed.NewHub(loggerClient)

	book := ledger.New(table, loggerClient,
		ledger.WithRetryPolicy(ledger.RetryPolicy{
			MaxAttempts:  cfg.RetryMaxAttempts,
			BaseDelay:    cfg.RetryBaseDelay,
			JitterFactor: retryJitter,
		}),
		ledger.WithNotifier(hub),
	)

	// Create manual audit trigger channel
	auditTrigger := make(chan struct{}, 1)
	auditor := scheduler.NewAuditor(book, loggerClient, cfg.AuditInterval, auditTrigger)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		Ledger:          book,
		Searcher:        catalog.NewSearcher(book),
		Store:           table,
		StoreKind:       provider.Kind(),
		Feed:            hub,
		Auditor:         auditor,
		AuditTrigger:    auditTrigger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RateLimitBurst:  cfg.RateLimitBurst,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   server,
		provider: provider,
		hub:      hub,
		auditor:  auditor,
	}
}

func seedLedger(table ledger.Table, path string, log logger.Logger) error {
	f, err := seed.NewLoader(path).Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err = seed.Import(ctx, table, f, log.With(logger.String("seed_file", path)))
	return err
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Bookshare v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.auditor.Start(ctx)
	a.logger.Info("ledger auditor started",
		logger.Duration("interval", a.cfg.AuditInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.auditor.Stop()
		a.hub.Close()
		a.provider.Close()
		return err
	}

	a.auditor.Stop()

	// Closing the hub ends open feed connections so Shutdown can complete.
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.provider.Close()
	a.logger.Info("✅ Bookshare stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
