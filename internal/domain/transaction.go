// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput indicates a caller-correctable submission error.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyReason indicates that the expense reason is blank.
	ErrEmptyReason = fmt.Errorf("%w: reason must not be empty", ErrInvalidInput)
	// ErrInvalidAmount indicates that the expense amount is not a positive number.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be a positive number", ErrInvalidInput)
)

// Kind tells expense entries from savings entries.
type Kind string

// Transaction kinds. Savings entries keep the "onramp" wire name.
const (
	KindExpense Kind = "expense"
	KindSavings Kind = "onramp"
)

// SavingsReasonPrefix prefixes the reason of every savings entry.
const SavingsReasonPrefix = "Onramp saving from: "

// Transaction is one entry of the ledger.
type Transaction struct {
	ID        int64           `json:"id"`
	Reason    string          `json:"reason"`
	Amount    decimal.Decimal `json:"amount"` // always positive
	Kind      Kind            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// SubmissionResult is the outcome of a successful expense submission.
type SubmissionResult struct {
	Expense             Transaction     `json:"expense"`
	OnrampAmount        decimal.Decimal `json:"onrampAmount"`
	BlockchainTriggered bool            `json:"blockchainTriggered"`
}

// SavingsEvent is emitted once an expense with a positive delta is in the ledger.
type SavingsEvent struct {
	ExpenseID     int64           `json:"expense_id"`
	ExpenseAmount decimal.Decimal `json:"expense_amount"`
	OnrampAmount  decimal.Decimal `json:"onramp_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DisplayTransaction is a listing row recomputed for display only.
type DisplayTransaction struct {
	ID        string          `json:"id"`
	Reason    string          `json:"reason"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      Kind            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}

// View is the display-only listing with its recomputed savings total.
type View struct {
	Rows         []DisplayTransaction `json:"expenses"`
	TotalSavings decimal.Decimal      `json:"totalSavings"`
}
