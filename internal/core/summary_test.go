package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	ref := NewYearMonth(2026, 2)
	a := testClient("1", "2026-01",
		MonthCell{Month: 2, Year: 2026, Status: StatusPaid, Source: SourceAI},
		// outside the window, still recovered
		MonthCell{Month: 1, Year: 2024, Status: StatusManualPaid, Source: SourceManual},
		MonthCell{Month: 1, Year: 2026, Status: StatusUnpaid, Source: SourceManual},
	)
	b := testClient("2", "2026-06")
	b.ExpectedAmount = decimal.RequireFromString("1200")

	s := Summarize([]Client{a, b}, ref, 14)

	assert.Equal(t, 2, s.TotalClients)
	assert.True(t, s.Recovered.Equal(decimal.RequireFromString("900")), "recovered=%s", s.Recovered)
	assert.Equal(t, 1, s.PaidMonths)
	assert.Equal(t, 1, s.OpenMonths)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, NewYearMonth(2026, 2), 14)

	assert.Zero(t, s.TotalClients)
	assert.True(t, s.Recovered.IsZero())
}
