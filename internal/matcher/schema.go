package matcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"incassi/internal/core"
)

// ValidationReport counts what strict validation kept and dropped.
type ValidationReport struct {
	Suggestions            int `json:"suggestions"`
	Cells                  int `json:"cells"`
	QuarantinedSuggestions int `json:"quarantinedSuggestions"`
	QuarantinedCells       int `json:"quarantinedCells"`
	OutOfRangeCells        int `json:"outOfRangeCells"`
}

type (
	rawSuggestion struct {
		ClientID string            `json:"clientId"`
		Months   []json.RawMessage `json:"months"`
	}

	rawCell struct {
		Month        *int                `json:"month"`
		Year         *int                `json:"year"`
		Status       string              `json:"status"`
		PaymentDates []string            `json:"paymentDates"`
		Amount       decimal.NullDecimal `json:"amount"`
	}
)

// responseSchema is the Gemini responseSchema for a suggestion batch.
var responseSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"clientId": map[string]any{"type": "STRING"},
			"months": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"month":        map[string]any{"type": "INTEGER"},
						"year":         map[string]any{"type": "INTEGER"},
						"status":       map[string]any{"type": "STRING", "enum": []string{"PAID", "UNPAID", "MANUAL_PAID"}},
						"paymentDates": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
						"amount":       map[string]any{"type": "NUMBER"},
					},
					"required": []string{"month", "year", "status", "paymentDates"},
				},
			},
		},
		"required": []string{"clientId", "months"},
	},
}

// ParseSuggestions decodes a suggestion batch and validates it strictly.
//
// The payload must be a JSON array of objects, otherwise the whole batch is
// rejected. Entries without a clientId and cells with an unknown status, a
// non YYYY-MM-DD payment date or a wrongly typed field are dropped and
// counted. Months outside 1-12 and years outside 1900-9999 are kept and
// logged.
func ParseSuggestions(ctx context.Context, payload []byte) ([]core.ClientSuggestion, ValidationReport, error) {
	var report ValidationReport

	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, report, newError(ErrInvalidResponse, false, err, "response is not a JSON array")
	}

	out := make([]core.ClientSuggestion, 0, len(items))
	for i, item := range items {
		if !isObject(item) {
			return nil, report, newError(ErrInvalidResponse, false, nil, "entry %d is not an object", i)
		}
		var rs rawSuggestion
		if err := json.Unmarshal(item, &rs); err != nil {
			slog.WarnContext(ctx, "Quarantined suggestion with malformed fields", "index", i, "error", err)
			report.QuarantinedSuggestions++
			continue
		}
		rs.ClientID = strings.TrimSpace(rs.ClientID)
		if rs.ClientID == "" {
			slog.WarnContext(ctx, "Quarantined suggestion without clientId", "index", i)
			report.QuarantinedSuggestions++
			continue
		}

		s := core.ClientSuggestion{ClientID: rs.ClientID, Months: make([]core.MonthCell, 0, len(rs.Months))}
		for j, raw := range rs.Months {
			cell, ok := parseCell(ctx, rs.ClientID, j, raw, &report)
			if !ok {
				report.QuarantinedCells++
				continue
			}
			s.Months = append(s.Months, cell)
			report.Cells++
		}
		out = append(out, s)
		report.Suggestions++
	}
	return out, report, nil
}

func parseCell(ctx context.Context, clientID string, idx int, raw json.RawMessage, report *ValidationReport) (core.MonthCell, bool) {
	var rc rawCell
	if !isObject(raw) {
		slog.WarnContext(ctx, "Quarantined cell that is not an object", "client_id", clientID, "index", idx)
		return core.MonthCell{}, false
	}
	if err := json.Unmarshal(raw, &rc); err != nil {
		slog.WarnContext(ctx, "Quarantined cell with malformed fields", "client_id", clientID, "index", idx, "error", err)
		return core.MonthCell{}, false
	}
	if rc.Month == nil || rc.Year == nil {
		slog.WarnContext(ctx, "Quarantined cell without month or year", "client_id", clientID, "index", idx)
		return core.MonthCell{}, false
	}
	status := core.Status(strings.ToUpper(strings.TrimSpace(rc.Status)))
	if !status.IsValid() {
		slog.WarnContext(ctx, "Quarantined cell with unknown status", "client_id", clientID, "index", idx, "status", rc.Status)
		return core.MonthCell{}, false
	}
	dates := make([]string, 0, len(rc.PaymentDates))
	for _, d := range rc.PaymentDates {
		d = strings.TrimSpace(d)
		if _, err := time.Parse(core.DateLayout, d); err != nil {
			slog.WarnContext(ctx, "Quarantined cell with bad payment date", "client_id", clientID, "index", idx, "date", d)
			return core.MonthCell{}, false
		}
		dates = append(dates, d)
	}

	cell := core.MonthCell{
		Month:        *rc.Month,
		Year:         *rc.Year,
		Status:       status,
		PaymentDates: dates,
		Amount:       rc.Amount,
	}
	if err := core.NewYearMonth(cell.Year, cell.Month).Validate(); err != nil {
		slog.WarnContext(ctx, "Keeping out-of-range cell as received",
			"client_id", clientID, "month", cell.Month, "year", cell.Year)
		report.OutOfRangeCells++
	}
	return cell, true
}

func isObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}

// stripCodeFences removes a surrounding Markdown code fence, if any.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
