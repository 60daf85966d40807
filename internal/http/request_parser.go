package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"incassi/internal/core"
	"incassi/internal/services"
)

const (
	maxBodyBytes          = 1 << 20
	maxReconcileBodyBytes = 8 << 20
	maxWindow             = 120
)

// errBadRequest marks malformed input. Its message is shown to the caller.
var errBadRequest = errors.New("bad request")

type (
	createClientRequest struct {
		Name           string          `json:"name"`
		StartDate      core.YearMonth  `json:"startDate"`
		ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	}

	// saveClientRequest accepts a client as listed by GET /api/clients. The
	// projected timeline is derived data and is dropped.
	saveClientRequest struct {
		core.Client
		Timeline json.RawMessage `json:"timeline,omitempty"`
	}

	saveClientsRequest []saveClientRequest

	reconcileRequest struct {
		BillingText string `json:"billingText"`
		BankText    string `json:"bankText"`
	}
)

// decodeJSON reads exactly one JSON value of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		default:
			return fmt.Errorf("%w: invalid JSON: %s", errBadRequest, err.Error())
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

func (reqs saveClientsRequest) clients() []core.Client {
	out := make([]core.Client, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Client)
	}
	return out
}

// parseViewQuery reads ?ref=YYYY-MM&window=N. Missing values mean defaults.
func parseViewQuery(r *http.Request) (services.ViewQuery, error) {
	var q services.ViewQuery
	if v := strings.TrimSpace(r.URL.Query().Get("ref")); v != "" {
		ref, err := core.ParseYearMonth(v)
		if err != nil {
			return q, fmt.Errorf("%w: ref must be YYYY-MM", errBadRequest)
		}
		q.Reference = ref
	}
	if v := strings.TrimSpace(r.URL.Query().Get("window")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxWindow {
			return q, fmt.Errorf("%w: window must be between 1 and %d", errBadRequest, maxWindow)
		}
		q.Window = n
	}
	return q, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return n, nil
}

func isAsync(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("async"))
	return err == nil && v
}
