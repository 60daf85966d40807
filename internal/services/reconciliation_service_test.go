package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"incassi/internal/amqp"
	"incassi/internal/core"
	"incassi/internal/matcher"
	"incassi/internal/storage"
)

func suggestion(clientID string, status core.Status, month, year int, dates ...string) core.ClientSuggestion {
	if dates == nil {
		dates = []string{}
	}
	return core.ClientSuggestion{
		ClientID: clientID,
		Months:   []core.MonthCell{{Month: month, Year: year, Status: status, PaymentDates: dates}},
	}
}

func TestReconcileAppliesSuggestions(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	ledger, store, events := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)

	m.EXPECT().
		Match(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req matcher.Request) (matcher.Result, error) {
			assert.Len(t, req.Clients, 7)
			assert.Equal(t, matcher.ClientContext{ID: "1", Name: "Amós Silva De Oliveira", StartDate: "2025-02"}, req.Clients[0])
			assert.Equal(t, "fatura", req.BillingText)
			assert.Equal(t, "extrato", req.BankText)
			return matcher.Result{
				Suggestions: []core.ClientSuggestion{
					suggestion("1", core.StatusPaid, 2, 2026, "2026-02-05"),
					suggestion("99", core.StatusPaid, 2, 2026),
				},
				Report: matcher.ValidationReport{Suggestions: 2, Cells: 2, QuarantinedCells: 1},
			}, nil
		})

	svc := NewReconciliationService(ledger, m, nil, events)
	res, err := svc.Reconcile(ctx, "fatura", "extrato")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Merge.Inserted)
	assert.Equal(t, []string{"1"}, res.Merge.MatchedClients)
	assert.Equal(t, []string{"99"}, res.Merge.UnknownClients)
	assert.Equal(t, 1, res.Validation.QuarantinedCells)
	require.Len(t, res.Clients, 7)
	assert.Equal(t, 8, res.Clients[0].Progress)
	assert.Equal(t, core.StatusPaid, res.Clients[0].Timeline[0].Status)
	assert.Equal(t, core.SourceAI, res.Clients[0].Timeline[0].Source)

	stored, err := store.GetClients(ctx)
	require.NoError(t, err)
	cell, ok := stored[0].Cell(2, 2026)
	require.True(t, ok)
	assert.Equal(t, core.SourceAI, cell.Source)
	assert.Equal(t, 8, stored[0].Progress)

	assert.Equal(t, []amqp.EventType{amqp.EventLedgerReconciled}, events.eventTypes())
}

func TestReconcileFailureLeavesLedgerUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	ledger, store, events := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)

	before, err := store.GetClients(ctx)
	require.NoError(t, err)

	cause := &matcher.Error{Code: matcher.ErrInvalidResponse, Message: "response is not a JSON array"}
	m.EXPECT().Match(gomock.Any(), gomock.Any()).Return(matcher.Result{}, cause)

	_, err = NewReconciliationService(ledger, m, nil, events).Reconcile(ctx, "", "extrato")
	assert.ErrorIs(t, err, ErrReconciliationFailed)
	var mErr *matcher.Error
	assert.True(t, errors.As(err, &mErr))

	after, err := store.GetClients(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, events.eventTypes())
}

func TestReconcileKeepsManualCells(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	ledger, store, _ := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)

	_, err := ledger.ToggleMonth(ctx, "3", 1, 2026)
	require.NoError(t, err)

	m.EXPECT().Match(gomock.Any(), gomock.Any()).Return(matcher.Result{
		Suggestions: []core.ClientSuggestion{suggestion("3", core.StatusUnpaid, 1, 2026)},
	}, nil)

	res, err := NewReconciliationService(ledger, m, nil, nil).Reconcile(ctx, "", "extrato")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merge.SkippedManual)

	stored, err := store.GetClients(ctx)
	require.NoError(t, err)
	cell, _ := stored[2].Cell(1, 2026)
	assert.Equal(t, core.StatusManualPaid, cell.Status)
}

func TestReconcileKeepsToggleMadeDuringMatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	ledger, store, _ := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)

	m.EXPECT().
		Match(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ matcher.Request) (matcher.Result, error) {
			_, err := ledger.ToggleMonth(ctx, "5", 12, 2025)
			require.NoError(t, err)
			return matcher.Result{Suggestions: []core.ClientSuggestion{
				suggestion("5", core.StatusPaid, 12, 2025, "2025-12-01"),
				suggestion("2", core.StatusPaid, 12, 2025, "2025-12-02"),
			}}, nil
		})

	res, err := NewReconciliationService(ledger, m, nil, nil).Reconcile(ctx, "", "extrato")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merge.SkippedManual)
	assert.Equal(t, 1, res.Merge.Inserted)

	stored, err := store.GetClients(ctx)
	require.NoError(t, err)
	cell, _ := stored[4].Cell(12, 2025)
	assert.Equal(t, core.StatusManualPaid, cell.Status)
	assert.Equal(t, []string{"2026-02-10"}, cell.PaymentDates)
}

// interleavingStore runs during once, after the roster is read for an
// update and before it is written back.
type interleavingStore struct {
	*storage.LedgerStore
	during func()
}

func (s *interleavingStore) Update(ctx context.Context, fn func([]core.Client) ([]core.Client, error)) ([]core.Client, error) {
	return s.LedgerStore.Update(ctx, func(clients []core.Client) ([]core.Client, error) {
		if d := s.during; d != nil {
			s.during = nil
			d()
		}
		return fn(clients)
	})
}

func TestReconcileKeepsToggleFromAnotherProcess(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	blobs := storage.NewMemoryBlobStore()
	clock := WithClock(func() time.Time { return testNow })

	server := NewLedgerService(storage.NewLedgerStore(blobs, "test_ledger"), clock)
	workerStore := &interleavingStore{LedgerStore: storage.NewLedgerStore(blobs, "test_ledger")}
	workerStore.during = func() {
		_, err := server.ToggleMonth(ctx, "5", 12, 2025)
		require.NoError(t, err)
	}
	worker := NewLedgerService(workerStore, clock)

	m := matcher.NewMockMatcher(ctrl)
	m.EXPECT().
		Match(gomock.Any(), gomock.Any()).
		Return(matcher.Result{Suggestions: []core.ClientSuggestion{
			suggestion("5", core.StatusPaid, 12, 2025, "2025-12-01"),
		}}, nil)

	res, err := NewReconciliationService(worker, m, nil, nil).Reconcile(ctx, "", "extrato")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Merge.SkippedManual)
	assert.Zero(t, res.Merge.Inserted)

	stored, err := server.Clients(ctx)
	require.NoError(t, err)
	cell, _ := stored[4].Cell(12, 2025)
	assert.Equal(t, core.StatusManualPaid, cell.Status)
	assert.Equal(t, core.SourceManual, cell.Source)
}

func TestReconcileIsSingleFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	m.EXPECT().
		Match(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, matcher.Request) (matcher.Result, error) {
			close(entered)
			<-release
			return matcher.Result{}, nil
		})

	svc := NewReconciliationService(ledger, m, nil, nil)
	done := make(chan error, 1)
	go func() {
		_, err := svc.Reconcile(ctx, "", "extrato")
		done <- err
	}()

	<-entered
	_, err := svc.Reconcile(ctx, "", "extrato")
	assert.ErrorIs(t, err, ErrReconciliationInProgress)

	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first reconciliation did not finish")
	}
}

func TestReconcileRequiresBankText(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger, _, _ := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)

	_, err := NewReconciliationService(ledger, m, nil, nil).Reconcile(context.Background(), "fatura", "  ")
	assert.ErrorIs(t, err, ErrNothingToReconcile)
}

func TestEnqueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	ledger, _, _ := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)

	_, err := NewReconciliationService(ledger, m, nil, nil).Enqueue(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrAsyncUnavailable)

	pub := &recordingPublisher{}
	id, err := NewReconciliationService(ledger, m, pub, nil).Enqueue(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, pub.requests, 1)
	assert.Equal(t, id, pub.requests[0].RequestID)
	assert.Equal(t, "b", pub.requests[0].BankText)
}

func TestHandleRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger, _, _ := newTestLedger(t)
	m := matcher.NewMockMatcher(ctrl)
	m.EXPECT().Match(gomock.Any(), gomock.Any()).Return(matcher.Result{}, nil)

	err := NewReconciliationService(ledger, m, nil, nil).HandleRequest(context.Background(), amqp.NewReconcileRequestMessage("a", "b"))
	assert.NoError(t, err)
}
