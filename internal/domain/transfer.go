package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrTransferRecordNotFound indicates that no transfer was attempted for the expense.
	ErrTransferRecordNotFound = errors.New("transfer record not found")
	// ErrTransferNotRetryable indicates that the transfer succeeded, may still
	// land on chain, or is already queued or in flight.
	ErrTransferNotRetryable = errors.New("transfer is not retryable")
	// ErrInsufficientBalance indicates that the admin wallet cannot cover the transfer.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrExpenseNotFound indicates that the expense is not in the ledger.
	ErrExpenseNotFound = errors.New("expense not found")
)

// TransferResult is what the transfer collaborator reports.
type TransferResult struct {
	Success     bool            `json:"success"`
	Hash        string          `json:"hash,omitempty"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Error       string          `json:"error,omitempty"`
}

// TransferRecord is the auxiliary record of a transfer attempt, keyed by expense id.
type TransferRecord struct {
	ExpenseID     int64           `json:"expenseId"`
	ExpenseAmount decimal.Decimal `json:"expenseAmount"`
	OnrampAmount  decimal.Decimal `json:"onrampAmount"`
	Result        TransferResult  `json:"blockchainResult"`
	Attempts      int             `json:"attempts"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Settled reports whether the transfer moved the amount or may still do so.
//
// A broadcast transfer without a receipt, for example after a wait timeout,
// can still be mined and is never sent again.
func (r TransferRecord) Settled() bool {
	if r.Result.Success {
		return true
	}

	return r.Result.Hash != "" && r.Result.BlockNumber == 0
}

// Balances holds the token balances of both transfer ends.
type Balances struct {
	Admin       decimal.Decimal `json:"adminBalance"`
	Destination decimal.Decimal `json:"destinationBalance"`
}

// TransferStatus is the operator view of the transfer collaborator.
type TransferStatus struct {
	Balances
	Transactions []TransferRecord `json:"transactions"`
}
