package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, "info", ComponentLedger)

	logger.InfoContext(context.Background(), "Payment toggled", FieldClientID, "1")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "client_id=1") {
		t.Errorf("log output = %q, want component and client_id", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithCell("7", 2, 2026).
		WithMerge(1, 2, 3, 4).
		WithError(errors.New("boom")).
		WithError(nil)

	if fields[FieldClientID] != "7" || fields[FieldMonth] != 2 || fields[FieldYear] != 2026 {
		t.Errorf("WithCell() fields = %v", fields)
	}
	if fields[FieldSkippedManual] != 3 || fields[FieldUnknown] != 4 {
		t.Errorf("WithMerge() fields = %v", fields)
	}
	if fields[FieldError] != "boom" {
		t.Errorf("WithError() = %v, want boom", fields[FieldError])
	}
	if got := len(fields.ToSlice()); got != 2*len(fields) {
		t.Errorf("ToSlice() len = %d, want %d", got, 2*len(fields))
	}
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	base := NewText(&buf, "debug", ComponentApp)

	handler := Middleware(base)(
		ComponentMiddleware(ComponentHTTP)(
			RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
				}))))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clients", nil))

	out := buf.String()
	if !strings.Contains(out, "request_id=req-42") || !strings.Contains(out, "component=http") {
		t.Errorf("log output = %q, want request id and http component", out)
	}
}

func TestFromContextDefault(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("FromContext() component = %q, want unknown", got.Component())
	}
}
