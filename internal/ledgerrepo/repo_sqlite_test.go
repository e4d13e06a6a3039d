package ledgerrepo

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/internal/ledgerservice"
	"github.com/go-petr/roundup-savings/pkg/randompkg"
)

func setupSQLite(t *testing.T) (*sql.DB, string) {
	t.Helper()

	source := filepath.Join(t.TempDir(), "ledger.db")

	db, err := Open(context.Background(), DialectSQLite, source)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db, source
}

func TestRebind(t *testing.T) {
	t.Parallel()

	pg := &RepoSQL{dialect: DialectPostgres}
	require.Equal(t, "VALUES ($1, $2, $3)", pg.rebind("VALUES (?, ?, ?)"))

	lite := &RepoSQL{dialect: DialectSQLite}
	require.Equal(t, "VALUES (?, ?, ?)", lite.rebind("VALUES (?, ?, ?)"))
}

func TestOpenUnsupportedDialect(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Dialect("mysql"), "")
	require.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestAppendAndList(t *testing.T) {
	t.Parallel()

	db, _ := setupSQLite(t)
	repo := NewRepoSQL(db, DialectSQLite)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	batch := []domain.Transaction{
		{ID: 10, Reason: "Coffee", Amount: decimal.RequireFromString("7.125"), Kind: domain.KindExpense, Timestamp: created},
		{ID: 11, Reason: "Onramp saving from: Coffee", Amount: decimal.RequireFromString("2.88"), Kind: domain.KindSavings, Timestamp: created},
	}

	require.NoError(t, repo.Append(ctx, batch))

	got, err := repo.List(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(batch, got); diff != "" {
		t.Errorf("List() returned unexpected diff: %s", diff)
	}

	// A duplicate id rolls back the whole batch.
	err = repo.Append(ctx, []domain.Transaction{
		{ID: 12, Reason: "Rent", Amount: decimal.NewFromInt(20), Kind: domain.KindExpense, Timestamp: created},
		{ID: 10, Reason: "Dup", Amount: decimal.NewFromInt(1), Kind: domain.KindExpense, Timestamp: created},
	})
	require.Error(t, err)

	got, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestTransferRecords(t *testing.T) {
	t.Parallel()

	db, _ := setupSQLite(t)
	repo := NewRepoSQL(db, DialectSQLite)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, []domain.Transaction{
		{ID: 1, Reason: "Coffee", Amount: decimal.NewFromInt(7), Kind: domain.KindExpense, Timestamp: created},
		{ID: 3, Reason: "Book", Amount: decimal.NewFromInt(14), Kind: domain.KindExpense, Timestamp: created},
	}))

	failed := domain.TransferRecord{
		ExpenseID:     1,
		ExpenseAmount: decimal.NewFromInt(7),
		OnrampAmount:  decimal.NewFromInt(3),
		Result:        domain.TransferResult{Amount: decimal.NewFromInt(3), Error: "rpc timeout"},
		Attempts:      1,
		Timestamp:     created,
	}
	require.NoError(t, repo.SaveTransferRecord(ctx, failed))

	succeeded := domain.TransferRecord{
		ExpenseID:     3,
		ExpenseAmount: decimal.NewFromInt(14),
		OnrampAmount:  decimal.NewFromInt(6),
		Result: domain.TransferResult{
			Success:     true,
			Hash:        "0x" + randompkg.String(64),
			BlockNumber: 1234567,
			Amount:      decimal.NewFromInt(6),
		},
		Attempts:  1,
		Timestamp: created,
	}
	require.NoError(t, repo.SaveTransferRecord(ctx, succeeded))

	// Retrying replaces the record.
	retried := failed
	retried.Result = domain.TransferResult{Success: true, Hash: "0xbeef", BlockNumber: 42, Amount: decimal.NewFromInt(3)}
	retried.Attempts = 2
	require.NoError(t, repo.SaveTransferRecord(ctx, retried))

	got, err := repo.ListTransferRecords(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff([]domain.TransferRecord{succeeded, retried}, got); diff != "" {
		t.Errorf("ListTransferRecords() returned unexpected diff: %s", diff)
	}
}

func TestLedgerReload(t *testing.T) {
	t.Parallel()

	db, source := setupSQLite(t)
	ctx := context.Background()

	ledger := ledgerservice.New(NewRepoSQL(db, DialectSQLite), nil)

	for _, amount := range []any{7, 20, "13.40", 0.5} {
		_, err := ledger.SubmitExpense(ctx, randompkg.Reason(), amount)
		require.NoError(t, err)
	}

	reopened, err := Open(ctx, DialectSQLite, source)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, reopened.Close())
	})

	reloaded := ledgerservice.New(NewRepoSQL(reopened, DialectSQLite), nil)
	require.NoError(t, reloaded.Load(ctx))

	if diff := cmp.Diff(ledger.List(), reloaded.List()); diff != "" {
		t.Errorf("reloaded List() returned unexpected diff: %s", diff)
	}

	require.True(t, reloaded.TotalSavings().Equal(ledger.TotalSavings()))

	before := reloaded.List()[0].ID

	res, err := reloaded.SubmitExpense(ctx, "Tea", 2)
	require.NoError(t, err)
	require.Greater(t, res.Expense.ID, before)
}
