package textsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Sheet reads a range of a Google spreadsheet and flattens it to CSV.
type Sheet struct {
	Service       *gsheet.Service
	SpreadsheetID string
	Range         string
}

func (s Sheet) Read(ctx context.Context) (string, error) {
	if s.Service == nil {
		return "", errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(s.SpreadsheetID) == "" || strings.TrimSpace(s.Range) == "" {
		return "", errors.New("spreadsheet id and range are required")
	}

	resp, err := s.Service.Spreadsheets.Values.Get(s.SpreadsheetID, s.Range).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get range %q: %w", s.Range, err)
	}
	slog.DebugContext(ctx, "Read sheet range",
		"spreadsheet_id", s.SpreadsheetID,
		"range", s.Range,
		"rows", len(resp.Values))

	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = toStrings(r)
	}
	return toCSV(rows)
}

// Credentials holds a service account key given inline or as a file path.
type Credentials struct {
	JSON string
	File string
}

// NewSheetsService creates a read-only Sheets service from service account
// credentials. Extra options are appended after the credentials.
func NewSheetsService(ctx context.Context, creds Credentials, opts ...goption.ClientOption) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(creds.JSON) != "":
		credentialsJSON = []byte(creds.JSON)
	case strings.TrimSpace(creds.File) != "":
		b, err := os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
