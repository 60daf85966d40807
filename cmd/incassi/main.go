package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"incassi/internal/cli"
	apphttp "incassi/internal/http"
	applog "incassi/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	app, err := cli.Bootstrap(ctx, cfg, logger, cli.BootstrapOptions{UseAMQP: true})
	if err != nil {
		logger.Error("Failed to initialize services", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	}()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                   ":" + cfg.Port,
		CORSAllowedOrigins:     cfg.CORSAllowedOrigins,
		ReconcileRatePerMinute: cfg.ReconcileRatePerMinute,
		Logger:                 logger.WithComponent(applog.ComponentHTTP),
	}, app.Ledger, app.Reconciler, app.Store)
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting incassi server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"reference", app.Ledger.Reference().String(),
			"window", app.Ledger.Window(),
			"amqp", app.AMQP != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	logger.Info("Server stopped gracefully")
}
