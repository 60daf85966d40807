// Package cli provides the initialization shared by cmd/incassi,
// cmd/incassi-worker and cmd/incassictl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"incassi/internal/amqp"
	"incassi/internal/backend"
	"incassi/internal/cache"
	"incassi/internal/config"
	applog "incassi/internal/log"
	"incassi/internal/matcher"
	"incassi/internal/services"
	"incassi/internal/storage"
	"incassi/internal/textsource"
)

// App holds the wired services of one process.
type App struct {
	Config     *config.Config
	Store      *storage.LedgerStore
	Ledger     *services.LedgerService
	Reconciler *services.ReconciliationService
	AMQP       *amqp.Client

	closers []func() error
}

type BootstrapOptions struct {
	// UseAMQP connects to AMQP_URL when set. A failed connection is fatal
	// only when RequireAMQP is also set.
	UseAMQP     bool
	RequireAMQP bool
	Now         services.Clock
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger creates a text logger on stdout and installs it as default.
func SetupLogger(level, component string) *applog.Logger {
	logger := applog.NewText(os.Stdout, level, component)
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap opens the ledger store, the optional AMQP client and the matcher,
// and wires the services on top.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts BootstrapOptions) (*App, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	app := &App{Config: cfg}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	app.Store = res.Store
	app.closers = append(app.closers, res.Cleanup)

	// Keep the publisher interfaces nil when AMQP is off.
	var (
		events   services.EventPublisher
		requests services.RequestPublisher
	)
	if opts.UseAMQP && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		switch {
		case err == nil:
			app.AMQP = client
			app.closers = append(app.closers, client.Close)
			events, requests = client, client
			logger.InfoContext(ctx, "AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		case opts.RequireAMQP:
			app.Close()
			return nil, fmt.Errorf("connect amqp: %w", err)
		default:
			logger.WarnContext(ctx, "AMQP unavailable, ledger events disabled", applog.FieldError, err)
		}
	} else if opts.RequireAMQP {
		app.Close()
		return nil, errors.New("AMQP_URL is required")
	} else {
		logger.InfoContext(ctx, "AMQP disabled, ledger events will be skipped")
	}

	ledgerOpts := []services.LedgerOption{
		services.WithClock(opts.Now),
		services.WithWindow(cfg.TimelineWindow),
		services.WithEvents(events),
	}
	if cfg.ReferenceMonth != "" {
		ledgerOpts = append(ledgerOpts, services.WithReference(cfg.Reference(opts.Now())))
	}
	app.Ledger = services.NewLedgerService(app.Store, ledgerOpts...)

	if cfg.GeminiAPIKey == "" {
		logger.WarnContext(ctx, "GEMINI_API_KEY not set, reconciliations will fail")
	}
	var m matcher.Matcher = matcher.NewGeminiClient(cfg.GeminiAPIKey,
		matcher.WithBaseURL(cfg.GeminiBaseURL),
		matcher.WithModel(cfg.GeminiModel),
		matcher.WithTimeout(cfg.MatcherTimeout),
	)
	if cfg.MatcherCacheSize > 0 {
		m = matcher.NewCached(m, cache.NewLRUCache[matcher.Result](cfg.MatcherCacheSize, cfg.MatcherCacheTTL))
	}
	app.Reconciler = services.NewReconciliationService(app.Ledger, m, requests, events)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SheetSource returns a text source for a range of the configured
// spreadsheet.
func (a *App) SheetSource(ctx context.Context, rng string) (textsource.Source, error) {
	if a.Config.GoogleSpreadsheetID == "" {
		return nil, errors.New("GOOGLE_SPREADSHEET_ID is not set")
	}
	svc, err := textsource.NewSheetsService(ctx, textsource.Credentials{
		JSON: a.Config.GoogleServiceAccountJSON,
		File: a.Config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	return textsource.Sheet{Service: svc, SpreadsheetID: a.Config.GoogleSpreadsheetID, Range: rng}, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
