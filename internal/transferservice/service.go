// Package transferservice moves the savings of each expense to the destination wallet.
package transferservice

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/breakerpkg"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"
)

// Transferer moves tokens on chain.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Transferer interface {
	Transfer(ctx context.Context, amount decimal.Decimal) (domain.TransferResult, error)
	Balances(ctx context.Context) (domain.Balances, error)
}

// Ledger keeps the transfer records.
//
// BeginTransfer claims the expense for one attempt; RecordTransfer releases it.
type Ledger interface {
	BeginTransfer(expenseID int64) (domain.TransferRecord, error)
	RecordTransfer(ctx context.Context, record domain.TransferRecord) error
	TransferRecords() []domain.TransferRecord
	Resend(ctx context.Context, expenseID int64) error
}

// Service facilitates transfer service layer logic.
type Service struct {
	transferer Transferer
	ledger     Ledger
	breaker    *breakerpkg.Breaker
	timeout    time.Duration
	now        func() time.Time
}

// New returns transfer service. Every transfer gets at most timeout to complete.
func New(transferer Transferer, ledger Ledger, breaker *breakerpkg.Breaker, timeout time.Duration) *Service {
	return &Service{
		transferer: transferer,
		ledger:     ledger,
		breaker:    breaker,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Handle transfers the onramp amount of the event and records the outcome.
//
// Transfer failures end up in the record, the returned error only reports
// that the record could not be stored. Events for an expense that is settled
// or being transferred by another worker are dropped.
func (s *Service) Handle(ctx context.Context, event domain.SavingsEvent) error {
	l := zerolog.Ctx(ctx).With().Int64("expense_id", event.ExpenseID).Logger()
	ctx = l.WithContext(ctx)

	prev, err := s.ledger.BeginTransfer(event.ExpenseID)
	if err != nil {
		l.Info().Err(err).Str("hash", prev.Result.Hash).Msg("savings event dropped")
		return nil
	}

	attempts := prev.Attempts + 1

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result domain.TransferResult

	err = s.breaker.Execute(tctx, func(ctx context.Context) error {
		var err error
		result, err = s.transferer.Transfer(ctx, event.OnrampAmount)

		return err
	})
	if err != nil {
		l.Warn().Err(err).Int("attempts", attempts).Msg("transfer failed")

		result.Success = false
		result.Error = err.Error()
	}

	result.Amount = event.OnrampAmount

	record := domain.TransferRecord{
		ExpenseID:     event.ExpenseID,
		ExpenseAmount: event.ExpenseAmount,
		OnrampAmount:  event.OnrampAmount,
		Result:        result,
		Attempts:      attempts,
		Timestamp:     s.now().UTC(),
	}

	if err := s.ledger.RecordTransfer(ctx, record); err != nil {
		l.Error().Err(err).Msg("cannot record transfer outcome")
		return err
	}

	if result.Success {
		l.Info().Str("hash", result.Hash).Uint64("block", result.BlockNumber).Msg("savings transferred")
	}

	return nil
}

// Status returns wallet balances and every transfer record.
func (s *Service) Status(ctx context.Context) (domain.TransferStatus, error) {
	l := zerolog.Ctx(ctx)

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	balances, err := s.transferer.Balances(tctx)
	if err != nil {
		l.Error().Err(err).Msg("cannot read balances")
		return domain.TransferStatus{}, errorspkg.ErrUnavailable
	}

	return domain.TransferStatus{
		Balances:     balances,
		Transactions: s.ledger.TransferRecords(),
	}, nil
}

// Retry queues the transfer of a failed record again.
func (s *Service) Retry(ctx context.Context, expenseID int64) error {
	l := zerolog.Ctx(ctx)

	err := s.ledger.Resend(ctx, expenseID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTransferRecordNotFound),
			errors.Is(err, domain.ErrTransferNotRetryable),
			errors.Is(err, domain.ErrExpenseNotFound):
			l.Info().Err(err).Int64("expense_id", expenseID).Send()
		default:
			l.Error().Err(err).Int64("expense_id", expenseID).Send()
		}

		return err
	}

	l.Info().Int64("expense_id", expenseID).Msg("transfer retry queued")

	return nil
}
