package core

import "iter"

// DefaultWindow is the number of months shown on a client card.
const DefaultWindow = 14

var monthLabels = [12]string{"JAN", "FEV", "MAR", "ABR", "MAI", "JUN", "JUL", "AGO", "SET", "OUT", "NOV", "DEZ"}

// TimelineEntry is one projected month of a client's ledger.
type TimelineEntry struct {
	Label        string   `json:"label"`
	Month        int      `json:"month"`
	Year         int      `json:"year"`
	Status       Status   `json:"status"`
	PaymentDates []string `json:"paymentDates"`
	Source       Source   `json:"source,omitempty"`
}

// MonthLabel returns the short upper-case month name, or "???" when month is
// out of range.
func MonthLabel(month int) string {
	if month < 1 || month > 12 {
		return "???"
	}
	return monthLabels[month-1]
}

// Timeline walks back from ref one month at a time, window times, yielding
// the months not earlier than the client's start date, most recent first.
// The sequence can be ranged over any number of times and never mutates c.
func Timeline(c Client, ref YearMonth, window int) iter.Seq[TimelineEntry] {
	return func(yield func(TimelineEntry) bool) {
		for i := 0; i < window; i++ {
			ym := ref.AddMonths(-i)
			if ym.Before(c.StartDate) {
				continue
			}
			if !yield(entryFor(c, ym)) {
				return
			}
		}
	}
}

// Project collects Timeline into a slice.
func Project(c Client, ref YearMonth, window int) []TimelineEntry {
	entries := []TimelineEntry{}
	for e := range Timeline(c, ref, window) {
		entries = append(entries, e)
	}
	return entries
}

func entryFor(c Client, ym YearMonth) TimelineEntry {
	entry := TimelineEntry{
		Label:        MonthLabel(ym.Month),
		Month:        ym.Month,
		Year:         ym.Year,
		Status:       StatusUnpaid,
		PaymentDates: []string{},
	}
	if cell, ok := c.Cell(ym.Month, ym.Year); ok {
		entry.Status = cell.Status
		entry.Source = cell.Source
		if len(cell.PaymentDates) > 0 {
			entry.PaymentDates = append([]string(nil), cell.PaymentDates...)
		}
	}
	return entry
}
