package core

// Progress is the rounded share of paid months in the client's projected
// timeline, 0 to 100. An empty timeline has progress 0.
func Progress(c Client, ref YearMonth, window int) int {
	var paid, total int
	for e := range Timeline(c, ref, window) {
		total++
		if e.Status.IsPaid() {
			paid++
		}
	}
	return percent(paid, total)
}

// percent rounds 100*part/total half-up using integer arithmetic.
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}

// WithProgress returns copies of the clients with progress recomputed.
func WithProgress(clients []Client, ref YearMonth, window int) []Client {
	out := make([]Client, len(clients))
	for i, c := range clients {
		out[i] = c.Clone()
		out[i].Progress = Progress(c, ref, window)
	}
	return out
}
