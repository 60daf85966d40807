package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"incassi/internal/amqp"
	"incassi/internal/core"
	applog "incassi/internal/log"
)

type (
	// ClientView is a client with its progress and timeline for one window.
	ClientView struct {
		core.Client
		Timeline []core.TimelineEntry `json:"timeline"`
	}

	// ViewQuery selects the reference month and window. Zero values mean the
	// service defaults.
	ViewQuery struct {
		Reference core.YearMonth
		Window    int
	}

	NewClientInput struct {
		Name           string
		StartDate      core.YearMonth
		ExpectedAmount decimal.Decimal
	}

	LedgerOption func(*LedgerService)
)

// LedgerService owns every read-modify-write cycle on the client roster.
type LedgerService struct {
	mu        sync.Mutex
	store     LedgerStore
	events    EventPublisher
	now       Clock
	reference core.YearMonth
	window    int
	newID     func() string
}

func WithClock(now Clock) LedgerOption {
	return func(s *LedgerService) { s.now = now }
}

// WithReference pins the reference month instead of following the clock.
func WithReference(ref core.YearMonth) LedgerOption {
	return func(s *LedgerService) { s.reference = ref }
}

func WithWindow(window int) LedgerOption {
	return func(s *LedgerService) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithEvents(events EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.events = events }
}

func NewLedgerService(store LedgerStore, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:  store,
		now:    time.Now,
		window: core.DefaultWindow,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reference returns the effective reference month.
func (s *LedgerService) Reference() core.YearMonth {
	if !s.reference.IsZero() {
		return s.reference
	}
	return core.YearMonthOf(s.now())
}

func (s *LedgerService) Window() int { return s.window }

func (s *LedgerService) resolve(q ViewQuery) (core.YearMonth, int) {
	ref, window := q.Reference, q.Window
	if ref.IsZero() {
		ref = s.Reference()
	}
	if window <= 0 {
		window = s.window
	}
	return ref, window
}

// Clients returns the stored roster as is.
func (s *LedgerService) Clients(ctx context.Context) ([]core.Client, error) {
	clients, err := s.store.GetClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("get clients: %w", err)
	}
	return clients, nil
}

// ListClients returns every client with progress and timeline recomputed for
// the query window.
func (s *LedgerService) ListClients(ctx context.Context, q ViewQuery) ([]ClientView, error) {
	clients, err := s.Clients(ctx)
	if err != nil {
		return nil, err
	}
	ref, window := s.resolve(q)
	return views(clients, ref, window), nil
}

func (s *LedgerService) Summary(ctx context.Context, q ViewQuery) (core.Summary, error) {
	clients, err := s.Clients(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	ref, window := s.resolve(q)
	return core.Summarize(clients, ref, window), nil
}

// CreateClient adds a client with a fresh id and an empty ledger.
func (s *LedgerService) CreateClient(ctx context.Context, in NewClientInput) (core.Client, error) {
	c := core.NewClient(s.newID(), in.Name, in.StartDate, in.ExpectedAmount.Round(2))
	if err := c.Validate(); err != nil {
		return core.Client{}, fmt.Errorf("validate client: %w", err)
	}

	_, err := s.update(ctx, func(clients []core.Client) ([]core.Client, error) {
		return append(clients, c), nil
	})
	if err != nil {
		return core.Client{}, err
	}

	slog.InfoContext(ctx, "Client created", "client_id", c.ID, "start_date", c.StartDate.String())
	s.publish(ctx, amqp.EventClientCreated, c.ID)
	return c, nil
}

// SaveClients replaces the whole roster.
func (s *LedgerService) SaveClients(ctx context.Context, clients []core.Client) error {
	saved, err := s.update(ctx, func([]core.Client) ([]core.Client, error) {
		return clients, nil
	})
	if err != nil {
		return err
	}

	ids := make([]string, len(saved))
	for i, c := range saved {
		ids[i] = c.ID
	}
	slog.InfoContext(ctx, "Ledger saved", "clients", len(saved))
	s.publish(ctx, amqp.EventLedgerSaved, ids...)
	return nil
}

// ToggleMonth flips one month of a client between paid and unpaid on behalf
// of a human operator.
func (s *LedgerService) ToggleMonth(ctx context.Context, clientID string, month, year int) (ClientView, error) {
	if err := core.NewYearMonth(year, month).Validate(); err != nil {
		return ClientView{}, err
	}

	var toggled core.Client
	_, err := s.update(ctx, func(clients []core.Client) ([]core.Client, error) {
		idx := core.FindClient(clients, clientID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
		}
		clients[idx] = core.Toggle(clients[idx], month, year, s.now())
		toggled = clients[idx]
		return clients, nil
	})
	if err != nil {
		return ClientView{}, err
	}

	cell, _ := toggled.Cell(month, year)
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogPaymentToggled(ctx, clientID, month, year, string(cell.Status))
	s.publish(ctx, amqp.EventPaymentToggled, clientID)

	ref, window := s.resolve(ViewQuery{})
	return view(toggled, ref, window), nil
}

// applyMerge merges suggestions into the current roster and persists it.
func (s *LedgerService) applyMerge(ctx context.Context, suggestions []core.ClientSuggestion) ([]core.Client, core.MergeReport, error) {
	var report core.MergeReport
	merged, err := s.update(ctx, func(clients []core.Client) ([]core.Client, error) {
		var out []core.Client
		out, report = core.MergeWithReport(clients, suggestions)
		return out, nil
	})
	return merged, report, err
}

// update runs fn on the current roster under the service lock, recomputes
// progress and saves the result in one write. The store re-runs fn if
// another writer saved in between.
func (s *LedgerService) update(ctx context.Context, fn func([]core.Client) ([]core.Client, error)) ([]core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, window := s.resolve(ViewQuery{})
	next, err := s.store.Update(ctx, func(clients []core.Client) ([]core.Client, error) {
		next, err := fn(clients)
		if err != nil {
			return nil, err
		}
		return core.WithProgress(next, ref, window), nil
	})
	if err != nil {
		return nil, fmt.Errorf("update clients: %w", err)
	}
	return next, nil
}

func (s *LedgerService) publish(ctx context.Context, eventType amqp.EventType, clientIDs ...string) {
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "type", eventType)
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.NewLedgerEventMessage(eventType, clientIDs...)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event", "type", eventType, "error", err)
	}
}

func view(c core.Client, ref core.YearMonth, window int) ClientView {
	out := c.Clone()
	out.Progress = core.Progress(c, ref, window)
	return ClientView{Client: out, Timeline: core.Project(c, ref, window)}
}

func views(clients []core.Client, ref core.YearMonth, window int) []ClientView {
	out := make([]ClientView, len(clients))
	for i, c := range clients {
		out[i] = view(c, ref, window)
	}
	return out
}
