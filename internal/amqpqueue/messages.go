package amqpqueue

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/domain"
)

// SavingsMessage is the wire form of a savings event.
type SavingsMessage struct {
	ExpenseID     int64           `json:"expense_id"`
	ExpenseAmount decimal.Decimal `json:"expense_amount"`
	OnrampAmount  decimal.Decimal `json:"onramp_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewSavingsMessage wraps the event for publishing.
func NewSavingsMessage(event domain.SavingsEvent) *SavingsMessage {
	return &SavingsMessage{
		ExpenseID:     event.ExpenseID,
		ExpenseAmount: event.ExpenseAmount,
		OnrampAmount:  event.OnrampAmount,
		CreatedAt:     event.CreatedAt,
		PublishedAt:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SavingsMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event returns the savings event carried by the message.
func (m *SavingsMessage) Event() domain.SavingsEvent {
	return domain.SavingsEvent{
		ExpenseID:     m.ExpenseID,
		ExpenseAmount: m.ExpenseAmount,
		OnrampAmount:  m.OnrampAmount,
		CreatedAt:     m.CreatedAt,
	}
}

// SavingsMessageFromJSON creates a message from JSON bytes.
func SavingsMessageFromJSON(data []byte) (*SavingsMessage, error) {
	var msg SavingsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	if msg.ExpenseID == 0 || !msg.OnrampAmount.IsPositive() {
		return nil, ErrMalformedMessage
	}

	return &msg, nil
}
