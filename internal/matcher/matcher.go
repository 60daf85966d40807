// Package matcher is the boundary to the external semantic-matching service.
// It turns billing and bank text into per-client month suggestions and
// validates them strictly before they reach the merge engine.
package matcher

import (
	"context"

	"incassi/internal/core"
)

//go:generate mockgen -source=matcher.go -destination=matcher_mock.go -package=matcher

// Matcher proposes payment states for the given clients.
type Matcher interface {
	Match(ctx context.Context, req Request) (Result, error)
}

type (
	// ClientContext is the part of a client shared with the matching service.
	ClientContext struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
	}

	Request struct {
		Clients     []ClientContext
		BillingText string
		BankText    string
	}

	Result struct {
		Suggestions []core.ClientSuggestion
		Report      ValidationReport
	}
)

// ContextFor builds the client context shared with the matcher.
func ContextFor(clients []core.Client) []ClientContext {
	out := make([]ClientContext, len(clients))
	for i, c := range clients {
		out[i] = ClientContext{ID: c.ID, Name: c.Name, StartDate: c.StartDate.String()}
	}
	return out
}
