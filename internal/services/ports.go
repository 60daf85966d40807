package services

import (
	"context"
	"errors"
	"time"

	"incassi/internal/amqp"
	"incassi/internal/core"
)

type (
	// LedgerStore persists the whole client collection. Update may call fn
	// more than once when the stored collection changes underneath it.
	LedgerStore interface {
		GetClients(ctx context.Context) ([]core.Client, error)
		SaveClients(ctx context.Context, clients []core.Client) error
		Update(ctx context.Context, fn func([]core.Client) ([]core.Client, error)) ([]core.Client, error)
	}

	// EventPublisher announces ledger changes. It may be nil.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
	}

	// RequestPublisher queues reconciliations for a worker. It may be nil.
	RequestPublisher interface {
		PublishReconcileRequest(ctx context.Context, msg *amqp.ReconcileRequestMessage) error
	}

	// Clock returns the current time.
	Clock func() time.Time
)

var (
	ErrClientNotFound           = errors.New("client not found")
	ErrReconciliationInProgress = errors.New("reconciliation already in progress")
	ErrReconciliationFailed     = errors.New("failed to process reconciliation")
	ErrNothingToReconcile       = errors.New("bank statement text is empty")
	ErrAsyncUnavailable         = errors.New("async reconciliation not available")
)
