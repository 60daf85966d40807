package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"incassi/internal/amqp"
	"incassi/internal/core"
	applog "incassi/internal/log"
	"incassi/internal/matcher"
)

// ReconcileResult is the outcome of one applied reconciliation.
type ReconcileResult struct {
	Clients    []ClientView             `json:"clients"`
	Merge      core.MergeReport         `json:"merge"`
	Validation matcher.ValidationReport `json:"validation"`
}

// ReconciliationService runs matcher → merge → persist. At most one
// reconciliation runs at a time; a concurrent call fails fast.
type ReconciliationService struct {
	ledger   *LedgerService
	matcher  matcher.Matcher
	requests RequestPublisher
	events   EventPublisher
	guard    *semaphore.Weighted
}

func NewReconciliationService(ledger *LedgerService, m matcher.Matcher, requests RequestPublisher, events EventPublisher) *ReconciliationService {
	return &ReconciliationService{
		ledger:   ledger,
		matcher:  m,
		requests: requests,
		events:   events,
		guard:    semaphore.NewWeighted(1),
	}
}

// Reconcile asks the matcher for suggestions and merges them into the
// ledger. Any matcher failure leaves the ledger untouched and is reported as
// ErrReconciliationFailed.
func (s *ReconciliationService) Reconcile(ctx context.Context, billingText, bankText string) (ReconcileResult, error) {
	if strings.TrimSpace(bankText) == "" {
		return ReconcileResult{}, ErrNothingToReconcile
	}
	if !s.guard.TryAcquire(1) {
		return ReconcileResult{}, ErrReconciliationInProgress
	}
	defer s.guard.Release(1)

	start := time.Now()
	clients, err := s.ledger.Clients(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	res, err := s.matcher.Match(ctx, matcher.Request{
		Clients:     matcher.ContextFor(clients),
		BillingText: billingText,
		BankText:    bankText,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Matcher failed, ledger left untouched", "error", err)
		return ReconcileResult{}, fmt.Errorf("%w: %w", ErrReconciliationFailed, err)
	}

	// Merge against the roster as it is now, so toggles made while the
	// matcher was running are kept.
	merged, report, err := s.ledger.applyMerge(ctx, res.Suggestions)
	if err != nil {
		return ReconcileResult{}, err
	}

	for _, id := range report.UnknownClients {
		slog.DebugContext(ctx, "Suggestion for unknown client ignored", "client_id", id)
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogReconciled(ctx,
		report.Inserted, report.Replaced, report.SkippedManual, len(report.UnknownClients))
	slog.DebugContext(ctx, "Reconciliation timing",
		"quarantined_cells", res.Report.QuarantinedCells,
		"duration_ms", time.Since(start).Milliseconds())

	if s.events != nil {
		msg := amqp.NewLedgerEventMessage(amqp.EventLedgerReconciled, report.MatchedClients...)
		if err := s.events.PublishLedgerEvent(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger event", "type", msg.Type, "error", err)
		}
	}

	ref, window := s.ledger.resolve(ViewQuery{})
	return ReconcileResult{
		Clients:    views(merged, ref, window),
		Merge:      report,
		Validation: res.Report,
	}, nil
}

// Enqueue hands the reconciliation to a worker and returns the request id.
func (s *ReconciliationService) Enqueue(ctx context.Context, billingText, bankText string) (string, error) {
	if strings.TrimSpace(bankText) == "" {
		return "", ErrNothingToReconcile
	}
	if s.requests == nil {
		return "", ErrAsyncUnavailable
	}
	msg := amqp.NewReconcileRequestMessage(billingText, bankText)
	if err := s.requests.PublishReconcileRequest(ctx, msg); err != nil {
		return "", fmt.Errorf("publish reconcile request: %w", err)
	}
	return msg.RequestID, nil
}

// HandleRequest processes a queued reconcile request.
func (s *ReconciliationService) HandleRequest(ctx context.Context, msg *amqp.ReconcileRequestMessage) error {
	_, err := s.Reconcile(ctx, msg.BillingText, msg.BankText)
	return err
}
