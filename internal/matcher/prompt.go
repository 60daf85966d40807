package matcher

import (
	"encoding/json"
	"fmt"
)

const promptTemplate = `Act as a cash-flow audit specialist.

CONTEXT (existing clients):
%s

TASK:
Reconcile the expected billing against the bank statement.

RULES:
1. STATEMENT: consider ONLY credit entries (deposits, received PIX transfers). Ignore debits.
2. MATCH: use name similarity to associate statement entries with the clients above.
3. START DATE: ignore any payment found before the client's startDate.
4. PERIOD: emit statuses only for months where the client was already active (month/year >= startDate).

Return a JSON array with reconciled data only for the clients you identified:
[{"clientId": "id from the context", "months": [{"month": 1-12, "year": 2024, "status": "PAID", "paymentDates": ["YYYY-MM-DD"], "amount": 0.0}]}]`

func buildPrompt(req Request) (string, error) {
	clients := req.Clients
	if clients == nil {
		clients = []ClientContext{}
	}
	clientsJSON, err := json.Marshal(clients)
	if err != nil {
		return "", fmt.Errorf("marshal client context: %w", err)
	}
	return fmt.Sprintf(promptTemplate, clientsJSON), nil
}
