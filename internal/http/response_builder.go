package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"incassi/internal/core"
	applog "incassi/internal/log"
	"incassi/internal/middleware/trace"
	"incassi/internal/services"
)

type (
	errorResponse struct {
		Error string `json:"error"`
	}

	acceptedResponse struct {
		RequestID string `json:"requestId"`
	}
)

var validationErrors = []error{
	core.ErrEmptyClientID,
	core.ErrEmptyName,
	core.ErrNameTooLong,
	core.ErrInvalidAmount,
	core.ErrInvalidStatus,
	core.ErrInvalidSource,
	core.ErrDuplicateCell,
	core.ErrDuplicateClientID,
	core.ErrManualWithoutTag,
	core.ErrInvalidYearMonth,
}

// statusFor maps service errors to a status code and the message shown to
// the caller.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")
	case errors.Is(err, services.ErrClientNotFound):
		return http.StatusNotFound, services.ErrClientNotFound.Error()
	case errors.Is(err, services.ErrReconciliationInProgress):
		return http.StatusConflict, services.ErrReconciliationInProgress.Error()
	case errors.Is(err, services.ErrReconciliationFailed):
		return http.StatusBadGateway, services.ErrReconciliationFailed.Error()
	case errors.Is(err, services.ErrNothingToReconcile):
		return http.StatusBadRequest, services.ErrNothingToReconcile.Error()
	case errors.Is(err, services.ErrAsyncUnavailable):
		return http.StatusServiceUnavailable, services.ErrAsyncUnavailable.Error()
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusBadRequest, err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and writes the mapped status. Server errors are logged
// at error level, caller errors at debug.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	if status >= 500 {
		fields := applog.NewFields().WithRequestID(trace.GetRequestID(ctx))
		fields[applog.FieldStatusCode] = status
		applog.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, applog.ComponentHTTP, r.Method+" "+r.URL.Path, fields)
	} else {
		logger.DebugContext(ctx, "Request rejected", applog.FieldError, err, applog.FieldStatusCode, status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", applog.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}
