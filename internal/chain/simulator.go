package chain

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/sha3"

	"github.com/go-petr/roundup-savings/internal/domain"
)

// Simulator is an in-memory token ledger standing in for a testnet.
type Simulator struct {
	mu          sync.Mutex
	admin       decimal.Decimal
	destination decimal.Decimal
	block       uint64
}

// NewSimulator returns a simulator whose admin wallet holds balance.
func NewSimulator(balance decimal.Decimal) *Simulator {
	return &Simulator{
		admin:       balance,
		destination: decimal.Zero,
		block:       1,
	}
}

// Transfer moves amount from the admin wallet to the destination wallet.
func (s *Simulator) Transfer(ctx context.Context, amount decimal.Decimal) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	result := domain.TransferResult{Amount: amount}

	if !amount.IsPositive() {
		return result, ErrInvalidAmount
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.admin.LessThan(amount) {
		l.Warn().Str("balance", s.admin.String()).Str("amount", amount.String()).Msg("insufficient simulated balance")
		return result, domain.ErrInsufficientBalance
	}

	s.admin = s.admin.Sub(amount)
	s.destination = s.destination.Add(amount)
	s.block++

	result.Success = true
	result.Hash = txHash(amount)
	result.BlockNumber = s.block

	l.Info().Str("hash", result.Hash).Uint64("block", result.BlockNumber).Msg("simulated transfer mined")

	return result, nil
}

// Balances returns the simulated wallet balances.
func (s *Simulator) Balances(context.Context) (domain.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Balances{Admin: s.admin, Destination: s.destination}, nil
}

func txHash(amount decimal.Decimal) string {
	id := uuid.New()

	h := sha3.NewLegacyKeccak256()
	h.Write(id[:])
	h.Write([]byte(amount.String()))

	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// Close is a no-op; the simulator holds no connection.
func (s *Simulator) Close() {}
