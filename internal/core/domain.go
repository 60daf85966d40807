package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StatusPaid       Status = "PAID"
	StatusUnpaid     Status = "UNPAID"
	StatusManualPaid Status = "MANUAL_PAID"
)

const (
	SourceNone   Source = ""
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// DateLayout is the ISO layout used for payment dates.
const DateLayout = "2006-01-02"

type (
	// Status is the payment state of a single month cell.
	Status string

	// Source records who last set a cell: the matcher (ai) or a human (manual).
	Source string

	// MonthCell is the payment record for one (month, year) of a client.
	MonthCell struct {
		Month        int                 `json:"month"`
		Year         int                 `json:"year"`
		Status       Status              `json:"status"`
		PaymentDates []string            `json:"paymentDates"`
		Amount       decimal.NullDecimal `json:"amount"`
		Source       Source              `json:"source,omitempty"`
	}

	Client struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		StartDate      YearMonth       `json:"startDate"`
		ExpectedAmount decimal.Decimal `json:"expectedAmount"`
		Months         []MonthCell     `json:"months"`
		Progress       int             `json:"progress"`
	}

	// ClientSuggestion is a batch of proposed cells for one client, as
	// produced by the external matcher.
	ClientSuggestion struct {
		ClientID string      `json:"clientId"`
		Months   []MonthCell `json:"months"`
	}

	cellKey struct {
		month int
		year  int
	}
)

var (
	ErrEmptyClientID     = errors.New("empty client id")
	ErrEmptyName         = errors.New("empty client name")
	ErrNameTooLong       = errors.New("client name too long (max 200 characters)")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidStatus     = errors.New("invalid payment status")
	ErrInvalidSource     = errors.New("invalid cell source")
	ErrDuplicateCell     = errors.New("duplicate month cell")
	ErrDuplicateClientID = errors.New("duplicate client id")
	ErrManualWithoutTag  = errors.New("manual payment without manual source")
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPaid, StatusUnpaid, StatusManualPaid:
		return true
	}
	return false
}

// IsPaid collapses the tri-state status to paid/unpaid.
func (s Status) IsPaid() bool {
	return s != StatusUnpaid
}

func (s Source) IsValid() bool {
	switch s {
	case SourceNone, SourceAI, SourceManual:
		return true
	}
	return false
}

func (m MonthCell) key() cellKey {
	return cellKey{month: m.Month, year: m.Year}
}

// Clone returns a copy of the cell that shares no backing arrays with m.
func (m MonthCell) Clone() MonthCell {
	out := m
	if m.PaymentDates != nil {
		out.PaymentDates = append(make([]string, 0, len(m.PaymentDates)), m.PaymentDates...)
	}
	return out
}

// MarshalJSON always emits paymentDates as an array.
func (m MonthCell) MarshalJSON() ([]byte, error) {
	type plain MonthCell
	p := plain(m)
	if p.PaymentDates == nil {
		p.PaymentDates = []string{}
	}
	return json.Marshal(p)
}

// Clone returns a deep copy of the client.
func (c Client) Clone() Client {
	out := c
	if c.Months != nil {
		out.Months = make([]MonthCell, len(c.Months))
		for i, m := range c.Months {
			out.Months[i] = m.Clone()
		}
	}
	return out
}

// Cell returns the stored cell for (month, year), if any.
func (c Client) Cell(month, year int) (MonthCell, bool) {
	idx := c.cellIndex(month, year)
	if idx < 0 {
		return MonthCell{}, false
	}
	return c.Months[idx], true
}

func (c Client) cellIndex(month, year int) int {
	for i, m := range c.Months {
		if m.Month == month && m.Year == year {
			return i
		}
	}
	return -1
}

// NewClient creates a client with an empty ledger and zero progress.
func NewClient(id, name string, start YearMonth, expected decimal.Decimal) Client {
	return Client{
		ID:             id,
		Name:           strings.TrimSpace(name),
		StartDate:      start,
		ExpectedAmount: expected,
		Months:         []MonthCell{},
	}
}

// Validate checks the client-level invariants. Cell month and year ranges
// are not checked: out-of-range cells are stored as received.
func (c Client) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyClientID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return ErrNameTooLong
	}
	if err := c.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !c.ExpectedAmount.IsPositive() {
		return ErrInvalidAmount
	}

	seen := make(map[cellKey]struct{}, len(c.Months))
	for _, m := range c.Months {
		if !m.Status.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, m.Status)
		}
		if !m.Source.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidSource, m.Source)
		}
		if m.Status == StatusManualPaid && m.Source != SourceManual {
			return fmt.Errorf("%w: %02d/%d", ErrManualWithoutTag, m.Month, m.Year)
		}
		if _, dup := seen[m.key()]; dup {
			return fmt.Errorf("%w: %02d/%d", ErrDuplicateCell, m.Month, m.Year)
		}
		seen[m.key()] = struct{}{}
	}
	return nil
}

// ValidateRoster validates every client and the uniqueness of their ids.
func ValidateRoster(clients []Client) error {
	ids := make(map[string]struct{}, len(clients))
	for _, c := range clients {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("client %q: %w", c.ID, err)
		}
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateClientID, c.ID)
		}
		ids[c.ID] = struct{}{}
	}
	return nil
}

// FindClient returns the index of the client with the given id, or -1.
func FindClient(clients []Client, id string) int {
	for i, c := range clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}
