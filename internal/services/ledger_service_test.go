package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incassi/internal/amqp"
	"incassi/internal/core"
	"incassi/internal/storage"
)

var testNow = time.Date(2026, time.February, 10, 15, 4, 5, 0, time.UTC)

type recordingPublisher struct {
	mu       sync.Mutex
	events   []*amqp.LedgerEventMessage
	requests []*amqp.ReconcileRequestMessage
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return nil
}

func (p *recordingPublisher) PublishReconcileRequest(_ context.Context, msg *amqp.ReconcileRequestMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, msg)
	return nil
}

func (p *recordingPublisher) eventTypes() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newTestLedger(t *testing.T) (*LedgerService, *storage.LedgerStore, *recordingPublisher) {
	t.Helper()
	store := storage.NewLedgerStore(storage.NewMemoryBlobStore(), "test_ledger")
	events := &recordingPublisher{}
	svc := NewLedgerService(store,
		WithClock(func() time.Time { return testNow }),
		WithEvents(events),
	)
	return svc, store, events
}

func TestLedgerServiceDefaults(t *testing.T) {
	svc, _, _ := newTestLedger(t)

	assert.Equal(t, core.NewYearMonth(2026, 2), svc.Reference())
	assert.Equal(t, 14, svc.Window())

	pinned := NewLedgerService(nil, WithReference(core.NewYearMonth(2025, 6)), WithWindow(6))
	assert.Equal(t, core.NewYearMonth(2025, 6), pinned.Reference())
	assert.Equal(t, 6, pinned.Window())
}

func TestListClientsSeedsRosterWithTimelines(t *testing.T) {
	svc, _, _ := newTestLedger(t)

	views, err := svc.ListClients(context.Background(), ViewQuery{})
	require.NoError(t, err)
	require.Len(t, views, 7)

	first := views[0]
	assert.Equal(t, "1", first.ID)
	assert.Len(t, first.Timeline, 13, "client starting 2025-02 shows 13 of 14 months")
	assert.Equal(t, "FEV", first.Timeline[0].Label)
	assert.Zero(t, first.Progress)

	angelita := views[5]
	assert.Len(t, angelita.Timeline, 3)

	short, err := svc.ListClients(context.Background(), ViewQuery{Reference: core.NewYearMonth(2025, 12), Window: 2})
	require.NoError(t, err)
	assert.Len(t, short[0].Timeline, 2)
	assert.Equal(t, "DEZ", short[0].Timeline[0].Label)
}

func TestCreateClient(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestLedger(t)

	c, err := svc.CreateClient(ctx, NewClientInput{
		Name:           "  Nova Cliente Ltda ",
		StartDate:      core.NewYearMonth(2026, 1),
		ExpectedAmount: decimal.RequireFromString("999.999"),
	})
	require.NoError(t, err)

	_, err = uuid.Parse(c.ID)
	assert.NoError(t, err, "ids are UUIDs")
	assert.Equal(t, "Nova Cliente Ltda", c.Name)
	assert.True(t, c.ExpectedAmount.Equal(decimal.RequireFromString("1000")))
	assert.Empty(t, c.Months)

	stored, err := store.GetClients(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 8)
	assert.Equal(t, c.ID, stored[7].ID)
	assert.Equal(t, []amqp.EventType{amqp.EventClientCreated}, events.eventTypes())
}

func TestCreateClientValidation(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestLedger(t)

	tests := []struct {
		name    string
		in      NewClientInput
		wantErr error
	}{
		{name: "empty name", in: NewClientInput{Name: " ", StartDate: core.NewYearMonth(2026, 1), ExpectedAmount: decimal.NewFromInt(1)}, wantErr: core.ErrEmptyName},
		{name: "zero amount", in: NewClientInput{Name: "X", StartDate: core.NewYearMonth(2026, 1), ExpectedAmount: decimal.Zero}, wantErr: core.ErrInvalidAmount},
		{name: "bad start", in: NewClientInput{Name: "X", StartDate: core.NewYearMonth(2026, 0), ExpectedAmount: decimal.NewFromInt(1)}, wantErr: core.ErrInvalidYearMonth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateClient(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	stored, err := store.GetClients(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 7)
	assert.Empty(t, events.eventTypes())
}

func TestToggleMonth(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestLedger(t)

	v, err := svc.ToggleMonth(ctx, "6", 1, 2026)
	require.NoError(t, err)

	cell, ok := v.Cell(1, 2026)
	require.True(t, ok)
	assert.Equal(t, core.StatusManualPaid, cell.Status)
	assert.Equal(t, core.SourceManual, cell.Source)
	assert.Equal(t, []string{"2026-02-10"}, cell.PaymentDates)
	assert.True(t, cell.Amount.Decimal.Equal(decimal.RequireFromString("450")))
	assert.Equal(t, 33, v.Progress, "1 of 3 months paid")

	stored, err := store.GetClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, 33, stored[5].Progress, "progress is persisted")

	v, err = svc.ToggleMonth(ctx, "6", 1, 2026)
	require.NoError(t, err)
	cell, _ = v.Cell(1, 2026)
	assert.Equal(t, core.StatusUnpaid, cell.Status)
	assert.Empty(t, cell.PaymentDates)
	assert.Zero(t, v.Progress)

	assert.Equal(t, []amqp.EventType{amqp.EventPaymentToggled, amqp.EventPaymentToggled}, events.eventTypes())
}

func TestToggleMonthErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLedger(t)

	_, err := svc.ToggleMonth(ctx, "404", 1, 2026)
	assert.ErrorIs(t, err, ErrClientNotFound)

	_, err = svc.ToggleMonth(ctx, "1", 13, 2026)
	assert.ErrorIs(t, err, core.ErrInvalidYearMonth)
}

func TestSaveClients(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestLedger(t)

	roster := storage.DefaultRoster()[:2]
	roster[0].Months = []core.MonthCell{{Month: 2, Year: 2026, Status: core.StatusPaid, Source: core.SourceAI}}
	roster[0].Progress = 99

	require.NoError(t, svc.SaveClients(ctx, roster))

	stored, err := store.GetClients(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 8, stored[0].Progress, "progress recomputed: 1 of 13")
	assert.Equal(t, []amqp.EventType{amqp.EventLedgerSaved}, events.eventTypes())

	dup := append(storage.DefaultRoster(), storage.DefaultRoster()[0])
	assert.ErrorIs(t, svc.SaveClients(ctx, dup), core.ErrDuplicateClientID)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestLedger(t)

	_, err := svc.ToggleMonth(ctx, "4", 2, 2026)
	require.NoError(t, err)

	s, err := svc.Summary(ctx, ViewQuery{})
	require.NoError(t, err)
	assert.Equal(t, 7, s.TotalClients)
	assert.True(t, s.Recovered.Equal(decimal.RequireFromString("2500")))
	assert.Equal(t, 1, s.PaidMonths)
	assert.Equal(t, 13+14+14+14+14+3+14-1, s.OpenMonths)
}

func TestLedgerServiceWithoutEvents(t *testing.T) {
	store := storage.NewLedgerStore(storage.NewMemoryBlobStore(), "k")
	svc := NewLedgerService(store, WithClock(func() time.Time { return testNow }))

	_, err := svc.ToggleMonth(context.Background(), "1", 2, 2026)
	assert.NoError(t, err)
}
