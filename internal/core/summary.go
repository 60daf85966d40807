package core

import "github.com/shopspring/decimal"

// Summary aggregates the whole roster for the dashboard.
type Summary struct {
	TotalClients int             `json:"totalClients"`
	Recovered    decimal.Decimal `json:"recovered"`
	PaidMonths   int             `json:"paidMonths"`
	OpenMonths   int             `json:"openMonths"`
}

// Summarize counts paid and open months inside each client's window.
// Recovered values every paid cell of the ledger, in or out of the window,
// at the client's expected amount.
func Summarize(clients []Client, ref YearMonth, window int) Summary {
	s := Summary{TotalClients: len(clients), Recovered: decimal.Zero}
	for _, c := range clients {
		paidCells := 0
		for _, m := range c.Months {
			if m.Status.IsPaid() {
				paidCells++
			}
		}
		s.Recovered = s.Recovered.Add(c.ExpectedAmount.Mul(decimal.NewFromInt(int64(paidCells))))

		for e := range Timeline(c, ref, window) {
			if e.Status.IsPaid() {
				s.PaidMonths++
			} else {
				s.OpenMonths++
			}
		}
	}
	return s
}
