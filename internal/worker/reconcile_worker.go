package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"incassi/internal/amqp"
	"incassi/internal/services"
)

type (
	// Reconciler runs one reconciliation.
	Reconciler interface {
		Reconcile(ctx context.Context, billingText, bankText string) (services.ReconcileResult, error)
	}

	// Consumer delivers queued reconcile requests until ctx is done.
	Consumer interface {
		ConsumeWithReconnect(ctx context.Context, handler func(context.Context, *amqp.ReconcileRequestMessage) error) error
	}
)

// ReconcileWorker applies queued reconcile requests one at a time.
type ReconcileWorker struct {
	reconciler Reconciler
	timeout    time.Duration
	busyRetry  time.Duration
	busyTries  int
}

func NewReconcileWorker(reconciler Reconciler, timeout time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		reconciler: reconciler,
		timeout:    timeout,
		busyRetry:  2 * time.Second,
		busyTries:  5,
	}
}

// HandleReconcileRequest processes a single reconcile request from AMQP.
// When another reconciliation holds the ledger it waits and tries again a few
// times before giving up.
func (w *ReconcileWorker) HandleReconcileRequest(ctx context.Context, msg *amqp.ReconcileRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	for attempt := 1; ; attempt++ {
		res, err := w.reconciler.Reconcile(ctx, msg.BillingText, msg.BankText)
		if err == nil {
			slog.InfoContext(ctx, "Reconcile request applied",
				"request_id", msg.RequestID,
				"inserted", res.Merge.Inserted,
				"replaced", res.Merge.Replaced,
				"skipped_manual", res.Merge.SkippedManual,
				"queued_for", time.Since(msg.Timestamp).String(),
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		}
		if !errors.Is(err, services.ErrReconciliationInProgress) || attempt >= w.busyTries {
			return fmt.Errorf("reconcile request %s: %w", msg.RequestID, err)
		}

		slog.WarnContext(ctx, "Ledger busy, retrying reconcile request",
			"request_id", msg.RequestID, "attempt", attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.busyRetry):
		}
	}
}

// Run consumes requests until ctx is cancelled.
func (w *ReconcileWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.ConsumeWithReconnect(ctx, w.HandleReconcileRequest)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
