package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger change announced on the events routing key.
type EventType string

const (
	EventClientCreated    EventType = "client.created"
	EventPaymentToggled   EventType = "payment.toggled"
	EventLedgerSaved      EventType = "ledger.saved"
	EventLedgerReconciled EventType = "ledger.reconciled"
)

// ReconcileRequestMessage asks a worker to run one reconciliation. The texts
// travel in the message so the worker needs no shared file system.
type ReconcileRequestMessage struct {
	RequestID   string    `json:"requestId"`
	BillingText string    `json:"billingText"`
	BankText    string    `json:"bankText"`
	Timestamp   time.Time `json:"timestamp"`
}

// LedgerEventMessage announces which clients changed.
type LedgerEventMessage struct {
	Type      EventType `json:"type"`
	ClientIDs []string  `json:"clientIds"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReconcileRequestMessage(billingText, bankText string) *ReconcileRequestMessage {
	return &ReconcileRequestMessage{
		RequestID:   uuid.NewString(),
		BillingText: billingText,
		BankText:    bankText,
		Timestamp:   time.Now(),
	}
}

func NewLedgerEventMessage(eventType EventType, clientIDs ...string) *LedgerEventMessage {
	if clientIDs == nil {
		clientIDs = []string{}
	}
	return &LedgerEventMessage{
		Type:      eventType,
		ClientIDs: clientIDs,
		Timestamp: time.Now(),
	}
}

func (m *ReconcileRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReconcileRequestMessageFromJSON decodes a request and requires its id.
func ReconcileRequestMessageFromJSON(data []byte) (*ReconcileRequestMessage, error) {
	var msg ReconcileRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RequestID == "" {
		return nil, errors.New("reconcile request without requestId")
	}
	return &msg, nil
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
