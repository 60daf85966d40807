package core

// MergeReport describes what a merge did to the ledger.
type MergeReport struct {
	Inserted       int      `json:"inserted"`
	Replaced       int      `json:"replaced"`
	SkippedManual  int      `json:"skippedManual"`
	MatchedClients []string `json:"matchedClients"`
	UnknownClients []string `json:"unknownClients"`
}

// Merge applies matcher suggestions to the existing clients and returns a new
// collection. Manually confirmed cells are never touched.
func Merge(existing []Client, suggestions []ClientSuggestion) []Client {
	merged, _ := MergeWithReport(existing, suggestions)
	return merged
}

// MergeWithReport is Merge plus a tally of inserted, replaced and skipped
// cells. Inputs are not modified.
//
// When the batch holds several suggestions for the same client the last one
// wins. Cell dates are not checked against the client's start date and
// out-of-range months are stored as received.
func MergeWithReport(existing []Client, suggestions []ClientSuggestion) ([]Client, MergeReport) {
	report := MergeReport{MatchedClients: []string{}, UnknownClients: []string{}}

	byClient := make(map[string]ClientSuggestion, len(suggestions))
	order := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if _, seen := byClient[s.ClientID]; !seen {
			order = append(order, s.ClientID)
		}
		byClient[s.ClientID] = s
	}

	known := make(map[string]struct{}, len(existing))
	out := make([]Client, len(existing))
	for i, c := range existing {
		known[c.ID] = struct{}{}
		s, ok := byClient[c.ID]
		if !ok {
			out[i] = c.Clone()
			continue
		}
		report.MatchedClients = append(report.MatchedClients, c.ID)
		out[i] = applySuggestion(c, s, &report)
	}

	for _, id := range order {
		if _, ok := known[id]; !ok {
			report.UnknownClients = append(report.UnknownClients, id)
		}
	}
	return out, report
}

func applySuggestion(c Client, s ClientSuggestion, report *MergeReport) Client {
	out := c.Clone()
	if out.Months == nil {
		out.Months = []MonthCell{}
	}
	for _, proposed := range s.Months {
		cell := aiCell(proposed)
		idx := out.cellIndex(cell.Month, cell.Year)
		switch {
		case idx < 0:
			out.Months = append(out.Months, cell)
			report.Inserted++
		case out.Months[idx].Status == StatusManualPaid:
			report.SkippedManual++
		default:
			out.Months[idx] = cell
			report.Replaced++
		}
	}
	return out
}

// aiCell tags a proposed cell as matcher-sourced. The matcher can never
// produce a manual confirmation, so a proposed MANUAL_PAID becomes PAID.
func aiCell(proposed MonthCell) MonthCell {
	cell := proposed.Clone()
	cell.Source = SourceAI
	if cell.Status == StatusManualPaid {
		cell.Status = StatusPaid
	}
	return cell
}
