package main

import (
	"os"

	"incassi/internal/cli"
	applog "incassi/internal/log"
	"incassi/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)

	logger.Info("Starting incassi-worker")

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	app, err := cli.Bootstrap(ctx, cfg, logger, cli.BootstrapOptions{UseAMQP: true, RequireAMQP: true})
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// A queued request may wait behind a synchronous one and then run the
	// matcher with its own retries.
	w := worker.NewReconcileWorker(app.Reconciler, 2*cfg.MatcherTimeout)

	logger.Info("Consuming reconcile requests", "queue", cfg.AMQPQueue)
	if err := w.Run(ctx, app.AMQP); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
