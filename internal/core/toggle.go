package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Toggle flips the paid state of one month cell as a human action.
//
// Paid and manually paid cells both count as paid: toggling them lands on
// UNPAID with no payment dates. Toggling an unpaid or absent cell lands on
// MANUAL_PAID dated today. Every toggle tags the cell as manual, so a human
// override always beats a previous matcher result.
func Toggle(c Client, month, year int, today time.Time) Client {
	out := c.Clone()
	date := today.Format(DateLayout)

	idx := out.cellIndex(month, year)
	if idx < 0 {
		out.Months = append(out.Months, MonthCell{
			Month:        month,
			Year:         year,
			Status:       StatusManualPaid,
			PaymentDates: []string{date},
			Amount:       decimal.NewNullDecimal(c.ExpectedAmount),
			Source:       SourceManual,
		})
		return out
	}

	cell := &out.Months[idx]
	if cell.Status.IsPaid() {
		cell.Status = StatusUnpaid
		cell.PaymentDates = []string{}
	} else {
		cell.Status = StatusManualPaid
		cell.PaymentDates = []string{date}
	}
	cell.Source = SourceManual
	return out
}
