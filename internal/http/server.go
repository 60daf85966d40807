// Package http exposes the ledger and reconciliation services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"incassi/internal/core"
	applog "incassi/internal/log"
	"incassi/internal/middleware/ratelimit"
	"incassi/internal/middleware/trace"
	"incassi/internal/services"
)

type (
	// Ledger is the roster side of the API.
	Ledger interface {
		ListClients(ctx context.Context, q services.ViewQuery) ([]services.ClientView, error)
		Summary(ctx context.Context, q services.ViewQuery) (core.Summary, error)
		CreateClient(ctx context.Context, in services.NewClientInput) (core.Client, error)
		SaveClients(ctx context.Context, clients []core.Client) error
		ToggleMonth(ctx context.Context, clientID string, month, year int) (services.ClientView, error)
	}

	Reconciler interface {
		Reconcile(ctx context.Context, billingText, bankText string) (services.ReconcileResult, error)
		Enqueue(ctx context.Context, billingText, bankText string) (string, error)
	}

	// Pinger reports whether the ledger store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Options struct {
		Addr                   string
		CORSAllowedOrigins     []string
		ReconcileRatePerMinute int
		Logger                 *applog.Logger
	}
)

type Server struct {
	http.Server
	ledger     Ledger
	reconciler Reconciler
	store      Pinger
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options, ledger Ledger, reconciler Reconciler, store Pinger) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		ledger:     ledger,
		reconciler: reconciler,
		store:      store,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.ReconcileRatePerMinute,
		}),
		tracer: trace.NewMiddleware(logger, ratelimit.ClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/clients", s.handleListClients)
	mux.HandleFunc("POST /api/clients", s.handleCreateClient)
	mux.HandleFunc("PUT /api/clients", s.handleSaveClients)
	mux.HandleFunc("POST /api/clients/{id}/months/{year}/{month}/toggle", s.handleToggle)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.Handle("POST /api/reconciliations",
		applog.ComponentMiddleware(applog.ComponentReconcile)(
			s.limiter.Middleware(ratelimit.ClientIP, onRateLimited)(http.HandlerFunc(s.handleReconcile))))

	var h http.Handler = mux
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(logger)(h)
	h = s.tracer.Middleware(h)
	h = newCORS(opts.CORSAllowedOrigins).Handler(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Synchronous reconciliations wait on the matcher.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID, "Retry-After"},
		MaxAge:         300,
	})
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			http.Error(w, "ledger store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
