// Package ledgerrepo manages repository layer of the ledger.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/dbpkg"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"

	// sqlite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

// ErrUnsupportedDialect indicates an unknown storage driver.
var ErrUnsupportedDialect = errors.New("unsupported sql dialect")

// Dialect is the SQL flavour of the database. Its value is also the database/sql driver name.
type Dialect string

// Supported dialects.
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// RepoSQL facilitates ledger repository layer logic.
type RepoSQL struct {
	db      dbpkg.SQLInterface
	conn    *sql.DB
	dialect Dialect
}

// NewRepoSQL returns RepoSQL with connection to start transactions.
func NewRepoSQL(db *sql.DB, dialect Dialect) *RepoSQL {
	return &RepoSQL{
		db:      db,
		conn:    db,
		dialect: dialect,
	}
}

// Open connects to the database and brings its schema up to date.
func Open(ctx context.Context, dialect Dialect, source string) (*sql.DB, error) {
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}

	if err := Migrate(dialect, source); err != nil {
		return nil, err
	}

	db, err := dbpkg.Setup(ctx, string(dialect), source)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// One writer at a time, sqlite locks the whole file anyway.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// rebind converts ? placeholders into the $n form postgres expects.
func (r *RepoSQL) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}

	var (
		sb strings.Builder
		n  int
	)

	for _, c := range query {
		if c != '?' {
			sb.WriteRune(c)
			continue
		}

		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}

	return sb.String()
}

const appendQuery = `
INSERT INTO
    ledger_entries (id, reason, amount, kind, created_at)
VALUES
    (?, ?, ?, ?, ?)
`

// Append stores the entries of one submission within a single transaction.
func (r *RepoSQL) Append(ctx context.Context, entries []domain.Transaction) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	query := r.rebind(appendQuery)

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, query,
			e.ID,
			e.Reason,
			e.Amount,
			string(e.Kind),
			e.Timestamp.UnixNano(),
		)
		if err != nil {
			l.Error().Err(err).Int64("id", e.ID).Msg("cannot insert ledger entry")
			return mapError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "ledger_entries_amount_check":
			return domain.ErrInvalidAmount
		case "ledger_entries_kind_check":
			return domain.ErrInvalidInput
		}
	}

	return errorspkg.ErrInternal
}

const listQuery = `
SELECT id, reason, amount, kind, created_at FROM ledger_entries
ORDER BY id
`

// List returns all ledger entries in insertion order.
func (r *RepoSQL) List(ctx context.Context) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		var (
			e       domain.Transaction
			created int64
		)

		if err := rows.Scan(
			&e.ID,
			&e.Reason,
			&e.Amount,
			&e.Kind,
			&created,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		e.Timestamp = time.Unix(0, created).UTC()
		items = append(items, e)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const saveTransferRecordQuery = `
INSERT INTO
    transfer_records (expense_id, expense_amount, onramp_amount, success, tx_hash, block_number, error, attempts, created_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (expense_id) DO UPDATE SET
    success = excluded.success,
    tx_hash = excluded.tx_hash,
    block_number = excluded.block_number,
    error = excluded.error,
    attempts = excluded.attempts,
    created_at = excluded.created_at
`

// SaveTransferRecord creates or replaces the transfer record of an expense.
func (r *RepoSQL) SaveTransferRecord(ctx context.Context, record domain.TransferRecord) error {
	l := zerolog.Ctx(ctx)

	_, err := r.db.ExecContext(ctx, r.rebind(saveTransferRecordQuery),
		record.ExpenseID,
		record.ExpenseAmount,
		record.OnrampAmount,
		record.Result.Success,
		record.Result.Hash,
		int64(record.Result.BlockNumber),
		record.Result.Error,
		record.Attempts,
		record.Timestamp.UnixNano(),
	)
	if err != nil {
		l.Error().Err(err).Msgf("SaveTransferRecord(ctx context.Context, %+v)", record)
		return errorspkg.ErrInternal
	}

	return nil
}

const listTransferRecordsQuery = `
SELECT
    expense_id, expense_amount, onramp_amount, success, tx_hash, block_number, error, attempts, created_at
FROM transfer_records
ORDER BY expense_id DESC
`

// ListTransferRecords returns all transfer records, newest expense first.
func (r *RepoSQL) ListTransferRecords(ctx context.Context) ([]domain.TransferRecord, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listTransferRecordsQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.TransferRecord{}

	for rows.Next() {
		var (
			rec     domain.TransferRecord
			block   int64
			created int64
		)

		if err := rows.Scan(
			&rec.ExpenseID,
			&rec.ExpenseAmount,
			&rec.OnrampAmount,
			&rec.Result.Success,
			&rec.Result.Hash,
			&block,
			&rec.Result.Error,
			&rec.Attempts,
			&created,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		rec.Result.BlockNumber = uint64(block)
		rec.Result.Amount = rec.OnrampAmount
		rec.Timestamp = time.Unix(0, created).UTC()
		items = append(items, rec)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
