package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBoundaries(t *testing.T) {
	ref := NewYearMonth(2026, 2)

	assert.Equal(t, 0, Progress(testClient("6", "2026-06"), ref, 14), "empty timeline")
	assert.Equal(t, 0, Progress(testClient("1", "2025-02"), ref, 14), "no cells")

	c := testClient("1", "2025-12")
	for ym := c.StartDate; !ref.Before(ym); ym = ym.AddMonths(1) {
		c.Months = append(c.Months, MonthCell{Month: ym.Month, Year: ym.Year, Status: StatusPaid, PaymentDates: []string{}, Source: SourceAI})
	}
	assert.Equal(t, 100, Progress(c, ref, 14))
}

func TestProgressRounding(t *testing.T) {
	ref := NewYearMonth(2026, 2)
	tests := []struct {
		name  string
		start string
		paid  []int // months of 2026 / 2025 encoded as offsets back from ref
		want  int
	}{
		{name: "1 of 3", start: "2025-12", paid: []int{0}, want: 33},
		{name: "2 of 3", start: "2025-12", paid: []int{0, 1}, want: 67},
		{name: "1 of 8 rounds half up", start: "2025-07", paid: []int{0}, want: 13},
		{name: "1 of 2", start: "2026-01", paid: []int{1}, want: 50},
		{name: "7 of 13", start: "2025-02", paid: []int{0, 1, 2, 3, 4, 5, 6}, want: 54},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient("1", tt.start)
			for _, back := range tt.paid {
				ym := ref.AddMonths(-back)
				status := StatusPaid
				source := SourceAI
				if back%2 == 1 {
					status, source = StatusManualPaid, SourceManual
				}
				c.Months = append(c.Months, MonthCell{Month: ym.Month, Year: ym.Year, Status: status, Source: source})
			}
			assert.Equal(t, tt.want, Progress(c, ref, 14))
		})
	}
}

func TestProgressIgnoresCellsOutsideWindow(t *testing.T) {
	c := testClient("1", "2020-01",
		MonthCell{Month: 1, Year: 2020, Status: StatusPaid, Source: SourceAI},
		MonthCell{Month: 13, Year: 2025, Status: StatusPaid, Source: SourceAI},
	)

	assert.Equal(t, 0, Progress(c, NewYearMonth(2026, 2), 14))
}

func TestWithProgress(t *testing.T) {
	stale := testClient("1", "2026-01", MonthCell{Month: 2, Year: 2026, Status: StatusPaid, Source: SourceAI})
	stale.Progress = 99

	out := WithProgress([]Client{stale}, NewYearMonth(2026, 2), 14)

	assert.Equal(t, 50, out[0].Progress)
	assert.Equal(t, 99, stale.Progress)
}
