// Package textsource loads the raw billing and bank statement text fed to the
// matcher. Spreadsheets are flattened to CSV so the matcher sees plain text.
package textsource

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Source yields a raw text document.
type Source interface {
	Read(ctx context.Context) (string, error)
}

// Text is an in-memory source.
type Text string

func (t Text) Read(context.Context) (string, error) { return string(t), nil }

// LoadPair reads the billing and bank sources concurrently. A nil billing
// source yields an empty billing text. Any failure fails the pair.
func LoadPair(ctx context.Context, billing, bank Source) (billingText, bankText string, err error) {
	g, ctx := errgroup.WithContext(ctx)
	if billing != nil {
		g.Go(func() error {
			s, err := billing.Read(ctx)
			if err != nil {
				return fmt.Errorf("read billing: %w", err)
			}
			billingText = s
			return nil
		})
	}
	g.Go(func() error {
		if bank == nil {
			return fmt.Errorf("read bank statement: %w", ErrNoSource)
		}
		s, err := bank.Read(ctx)
		if err != nil {
			return fmt.Errorf("read bank statement: %w", err)
		}
		bankText = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return billingText, bankText, nil
}

// toCSV flattens a grid of rows. Trailing empty rows are dropped.
func toCSV(rows [][]string) (string, error) {
	for len(rows) > 0 && isBlank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
