// Package ledgerservice manages the round-up savings ledger.
package ledgerservice

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"
	"github.com/go-petr/roundup-savings/pkg/roundpkg"
)

// Repo provides data access layer interface needed by the ledger.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Repo interface {
	Append(ctx context.Context, entries []domain.Transaction) error
	List(ctx context.Context) ([]domain.Transaction, error)
	SaveTransferRecord(ctx context.Context, record domain.TransferRecord) error
	ListTransferRecords(ctx context.Context) ([]domain.TransferRecord, error)
}

// Notifier receives savings events once they are part of the ledger.
//
// Notify must not block on the transfer itself.
type Notifier interface {
	Notify(ctx context.Context, event domain.SavingsEvent) error
}

// Service owns the ledger state.
type Service struct {
	repo     Repo
	notifier Notifier
	now      func() time.Time

	// writeMu serializes submissions including their persistence.
	writeMu sync.Mutex
	lastID  int64 // guarded by writeMu

	// stateMu guards the in-memory ledger and is never held across I/O.
	stateMu sync.RWMutex
	entries []domain.Transaction // oldest first
	total   decimal.Decimal

	// recordsMu guards the transfer records and the per-expense claims. An
	// expense is queued from dispatch until a worker begins its transfer and
	// in flight until the outcome is recorded.
	recordsMu sync.RWMutex
	records   map[int64]domain.TransferRecord
	queued    map[int64]struct{}
	inFlight  map[int64]struct{}
}

// New returns an empty ledger. repo and notifier are optional.
func New(repo Repo, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		total:    decimal.Zero,
		records:  make(map[int64]domain.TransferRecord),
		queued:   make(map[int64]struct{}),
		inFlight: make(map[int64]struct{}),
	}
}

// Load replays the persisted ledger into memory.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	l := zerolog.Ctx(ctx)

	entries, err := s.repo.List(ctx)
	if err != nil {
		l.Error().Err(err).Msg("cannot load ledger entries")
		return errorspkg.ErrInternal
	}

	records, err := s.repo.ListTransferRecords(ctx)
	if err != nil {
		l.Error().Err(err).Msg("cannot load transfer records")
		return errorspkg.ErrInternal
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	total := decimal.Zero

	for _, e := range entries {
		if e.Kind == domain.KindSavings {
			total = total.Add(e.Amount)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if len(entries) > 0 {
		s.lastID = entries[len(entries)-1].ID
	}

	s.stateMu.Lock()
	s.entries = entries
	s.total = total
	s.stateMu.Unlock()

	s.recordsMu.Lock()
	for _, r := range records {
		s.records[r.ExpenseID] = r
	}
	s.recordsMu.Unlock()

	l.Info().Int("entries", len(entries)).Int("transfer_records", len(records)).Msg("ledger loaded")

	return nil
}

// SubmitExpense records an expense and its paired savings entry.
//
// The savings entry exists only when the round-up delta is positive. When it
// does, a savings event is handed to the notifier after the ledger update.
func (s *Service) SubmitExpense(ctx context.Context, reason string, amount any) (domain.SubmissionResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.SubmissionResult

	reason = strings.TrimSpace(reason)
	if reason == "" {
		l.Info().Err(domain.ErrEmptyReason).Send()
		return result, domain.ErrEmptyReason
	}

	value, ok := roundpkg.Parse(amount)
	if !ok || !value.IsPositive() {
		l.Info().Err(domain.ErrInvalidAmount).Interface("amount", amount).Send()
		return result, domain.ErrInvalidAmount
	}

	delta := roundpkg.SavingsDelta(value)

	expense, err := s.append(ctx, reason, value, delta)
	if err != nil {
		return result, err
	}

	result = domain.SubmissionResult{
		Expense:             expense,
		OnrampAmount:        delta,
		BlockchainTriggered: delta.IsPositive(),
	}

	if result.BlockchainTriggered {
		l.Info().
			Int64("expense_id", expense.ID).
			Str("onramp_amount", roundpkg.Display(delta)).
			Msg("onramp saving detected")

		event := domain.SavingsEvent{
			ExpenseID:     expense.ID,
			ExpenseAmount: expense.Amount,
			OnrampAmount:  delta,
			CreatedAt:     expense.Timestamp,
		}

		if s.notifier != nil {
			s.dispatch(ctx, event)

			// The failure is kept on the transfer record.
			_ = s.notify(ctx, event)
		}
	}

	return result, nil
}

func (s *Service) append(ctx context.Context, reason string, value, delta decimal.Decimal) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now().UTC()

	expense := domain.Transaction{
		ID:        nextID(s.lastID, now),
		Reason:    reason,
		Amount:    value,
		Kind:      domain.KindExpense,
		Timestamp: now,
	}

	batch := []domain.Transaction{expense}

	if delta.IsPositive() {
		batch = append(batch, domain.Transaction{
			ID:        expense.ID + 1,
			Reason:    domain.SavingsReasonPrefix + reason,
			Amount:    delta,
			Kind:      domain.KindSavings,
			Timestamp: now,
		})
	}

	if s.repo != nil {
		if err := s.repo.Append(ctx, batch); err != nil {
			l.Error().Err(err).Int64("expense_id", expense.ID).Msg("cannot persist ledger entries")
			return domain.Transaction{}, errorspkg.ErrInternal
		}
	}

	s.stateMu.Lock()
	s.entries = append(s.entries, batch...)
	s.total = s.total.Add(delta)
	s.stateMu.Unlock()

	s.lastID = batch[len(batch)-1].ID

	return expense, nil
}

// nextID derives ids from the wall clock in milliseconds while keeping them strictly increasing.
func nextID(last int64, now time.Time) int64 {
	id := now.UnixMilli()
	if id <= last {
		id = last + 1
	}

	return id
}

// dispatch stores a transfer record without attempts for a new event and
// marks the expense queued.
func (s *Service) dispatch(ctx context.Context, event domain.SavingsEvent) {
	record := domain.TransferRecord{
		ExpenseID:     event.ExpenseID,
		ExpenseAmount: event.ExpenseAmount,
		OnrampAmount:  event.OnrampAmount,
		Result:        domain.TransferResult{Amount: event.OnrampAmount},
		Timestamp:     s.now().UTC(),
	}

	s.recordsMu.Lock()
	s.records[event.ExpenseID] = record
	s.queued[event.ExpenseID] = struct{}{}
	s.recordsMu.Unlock()

	if s.repo != nil {
		if err := s.repo.SaveTransferRecord(ctx, record); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("expense_id", event.ExpenseID).Msg("cannot persist pending transfer record")
		}
	}
}

// notify hands the event over and records a failed transfer when the notifier rejects it.
func (s *Service) notify(ctx context.Context, event domain.SavingsEvent) error {
	if s.notifier == nil {
		return nil
	}

	l := zerolog.Ctx(ctx)

	if err := s.notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
		l.Warn().Err(err).Int64("expense_id", event.ExpenseID).Msg("savings event not dispatched")

		record := domain.TransferRecord{
			ExpenseID:     event.ExpenseID,
			ExpenseAmount: event.ExpenseAmount,
			OnrampAmount:  event.OnrampAmount,
			Result: domain.TransferResult{
				Amount: event.OnrampAmount,
				Error:  err.Error(),
			},
			Timestamp: s.now().UTC(),
		}

		if prev, err := s.TransferRecord(event.ExpenseID); err == nil {
			record.Attempts = prev.Attempts
			record.Result.Hash = prev.Result.Hash
			record.Result.BlockNumber = prev.Result.BlockNumber
		}

		if err := s.RecordTransfer(ctx, record); err != nil {
			l.Error().Err(err).Int64("expense_id", event.ExpenseID).Msg("cannot record dispatch failure")
		}

		return err
	}

	return nil
}

// List returns all transactions, most recently created first.
func (s *Service) List() []domain.Transaction {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	items := make([]domain.Transaction, len(s.entries))
	for i, e := range s.entries {
		items[len(s.entries)-1-i] = e
	}

	return items
}

// TotalSavings returns the sum of all savings entries.
func (s *Service) TotalSavings() decimal.Decimal {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	return s.total
}

// View recomputes the savings rows of every expense for display.
//
// Stored savings entries are ignored; each row is derived again from the
// expense amount so that it can be compared with what was recorded.
func (s *Service) View() domain.View {
	items := s.List()

	view := domain.View{
		Rows:         make([]domain.DisplayTransaction, 0, len(items)),
		TotalSavings: decimal.Zero,
	}

	for _, e := range items {
		if e.Kind != domain.KindExpense {
			continue
		}

		id := strconv.FormatInt(e.ID, 10)

		if delta := roundpkg.SavingsDelta(e.Amount); delta.IsPositive() {
			view.Rows = append(view.Rows, domain.DisplayTransaction{
				ID:        "onramp-" + id,
				Reason:    "On Ramp Coinbase",
				Amount:    delta,
				Kind:      domain.KindSavings,
				Timestamp: e.Timestamp,
			})
			view.TotalSavings = view.TotalSavings.Add(delta)
		}

		view.Rows = append(view.Rows, domain.DisplayTransaction{
			ID:        id,
			Reason:    e.Reason,
			Amount:    e.Amount,
			Kind:      domain.KindExpense,
			Timestamp: e.Timestamp,
		})
	}

	return view
}

// SavingsEvent rebuilds the savings event of an expense already in the ledger.
func (s *Service) SavingsEvent(expenseID int64) (domain.SavingsEvent, error) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	i := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].ID >= expenseID })
	if i == len(s.entries) || s.entries[i].ID != expenseID || s.entries[i].Kind != domain.KindExpense {
		return domain.SavingsEvent{}, domain.ErrExpenseNotFound
	}

	expense := s.entries[i]

	return domain.SavingsEvent{
		ExpenseID:     expense.ID,
		ExpenseAmount: expense.Amount,
		OnrampAmount:  roundpkg.SavingsDelta(expense.Amount),
		CreatedAt:     expense.Timestamp,
	}, nil
}

// Resend hands the savings event of an expense whose transfer failed to the notifier again.
//
// At most one event per expense is outstanding: a resend is refused while the
// expense is queued or in flight, and once its transfer is settled.
func (s *Service) Resend(ctx context.Context, expenseID int64) error {
	if err := s.claimResend(expenseID); err != nil {
		return err
	}

	event, err := s.SavingsEvent(expenseID)
	if err != nil {
		s.recordsMu.Lock()
		delete(s.queued, expenseID)
		s.recordsMu.Unlock()

		return err
	}

	if err := s.notify(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", errorspkg.ErrUnavailable, err)
	}

	return nil
}

func (s *Service) claimResend(expenseID int64) error {
	s.recordsMu.Lock()
	defer s.recordsMu.Unlock()

	record, ok := s.records[expenseID]
	if !ok {
		return domain.ErrTransferRecordNotFound
	}

	if record.Settled() {
		return fmt.Errorf("%w: expense %d is settled", domain.ErrTransferNotRetryable, expenseID)
	}

	if s.claimed(expenseID) {
		return fmt.Errorf("%w: expense %d is in flight", domain.ErrTransferNotRetryable, expenseID)
	}

	s.queued[expenseID] = struct{}{}

	return nil
}

// claimed must be called with recordsMu held.
func (s *Service) claimed(expenseID int64) bool {
	_, queued := s.queued[expenseID]
	_, inFlight := s.inFlight[expenseID]

	return queued || inFlight
}

// BeginTransfer claims the expense for one transfer attempt and returns its
// current record, which is zero when none exists.
//
// It fails with ErrTransferNotRetryable when the transfer is settled or
// another attempt is in flight. The claim lasts until RecordTransfer.
func (s *Service) BeginTransfer(expenseID int64) (domain.TransferRecord, error) {
	s.recordsMu.Lock()
	defer s.recordsMu.Unlock()

	record := s.records[expenseID]

	if record.Settled() {
		return record, fmt.Errorf("%w: expense %d is settled", domain.ErrTransferNotRetryable, expenseID)
	}

	if _, ok := s.inFlight[expenseID]; ok {
		return record, fmt.Errorf("%w: expense %d is in flight", domain.ErrTransferNotRetryable, expenseID)
	}

	delete(s.queued, expenseID)
	s.inFlight[expenseID] = struct{}{}

	return record, nil
}

// RecordTransfer stores the outcome reported by the transfer collaborator and
// releases the claim on the expense.
//
// The outcome is kept in memory even when it cannot be persisted, so that a
// settled transfer is never sent again by this process.
func (s *Service) RecordTransfer(ctx context.Context, record domain.TransferRecord) error {
	s.recordsMu.Lock()
	s.records[record.ExpenseID] = record
	delete(s.queued, record.ExpenseID)
	delete(s.inFlight, record.ExpenseID)
	s.recordsMu.Unlock()

	if s.repo != nil {
		if err := s.repo.SaveTransferRecord(ctx, record); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int64("expense_id", record.ExpenseID).Msg("cannot persist transfer record")
			return errorspkg.ErrInternal
		}
	}

	return nil
}

// TransferRecord returns the transfer record of the given expense.
func (s *Service) TransferRecord(expenseID int64) (domain.TransferRecord, error) {
	s.recordsMu.RLock()
	defer s.recordsMu.RUnlock()

	record, ok := s.records[expenseID]
	if !ok {
		return domain.TransferRecord{}, domain.ErrTransferRecordNotFound
	}

	return record, nil
}

// TransferRecords returns all transfer records, newest expense first.
func (s *Service) TransferRecords() []domain.TransferRecord {
	s.recordsMu.RLock()
	defer s.recordsMu.RUnlock()

	items := make([]domain.TransferRecord, 0, len(s.records))
	for _, r := range s.records {
		items = append(items, r)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ExpenseID > items[j].ExpenseID })

	return items
}
