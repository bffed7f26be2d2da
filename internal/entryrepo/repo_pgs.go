// Package entryrepo manages repository layer of ledger entries.
package entryrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/dbpkg"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
)

// RepoPGS facilitates ledger entry repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns entry RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const entryColumns = `
	id, reference, from_account_id, to_account_id, amount, kind, status,
	from_balance_after, to_balance_after, description, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (domain.Entry, error) {
	var (
		e        domain.Entry
		from, to sql.NullString
	)

	err := row.Scan(
		&e.ID,
		&e.Reference,
		&from,
		&to,
		&e.Amount,
		&e.Kind,
		&e.Status,
		&e.FromBalanceAfter,
		&e.ToBalanceAfter,
		&e.Description,
		&e.CreatedAt,
	)

	e.FromAccountID = from.String
	e.ToAccountID = to.String

	return e, err
}

func nullID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

const createQuery = `
INSERT INTO
    entries (id, reference, from_account_id, to_account_id, amount, kind,
             status, from_balance_after, to_balance_after, description)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING` + entryColumns

// Create appends the entry to the ledger and returns it. A reference
// collision surfaces as domain.ErrDuplicateReference so callers can resolve
// the idempotent replay.
func (r *RepoPGS) Create(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.NewString(),
		e.Reference,
		nullID(e.FromAccountID),
		nullID(e.ToAccountID),
		e.Amount,
		e.Kind,
		e.Status,
		e.FromBalanceAfter,
		e.ToBalanceAfter,
		e.Description,
	)

	created, err := scanEntry(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "entries_reference_key":
				return created, domain.ErrDuplicateReference
			case "entries_amount_check":
				return created, domain.ErrNonPositiveAmount
			case "entries_from_account_id_fkey", "entries_to_account_id_fkey":
				return created, domain.ErrAccountNotFound
			}
		}

		l.Error().Err(err).Msgf("Create(ctx, reference %s)", e.Reference)

		return created, errorspkg.ErrInternal
	}

	return created, nil
}

const getQuery = `
SELECT` + entryColumns + `
FROM entries
WHERE id = $1`

// Get returns the entry with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Entry, error) {
	return r.get(ctx, getQuery, id)
}

const getByReferenceQuery = `
SELECT` + entryColumns + `
FROM entries
WHERE reference = $1`

// GetByReference returns the entry with the given idempotency reference.
func (r *RepoPGS) GetByReference(ctx context.Context, reference string) (domain.Entry, error) {
	return r.get(ctx, getByReferenceQuery, reference)
}

func (r *RepoPGS) get(ctx context.Context, query, key string) (domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, domain.ErrEntryNotFound
		}

		l.Error().Err(err).Send()

		return e, errorspkg.ErrInternal
	}

	return e, nil
}

const listQuery = `
SELECT` + entryColumns + `
FROM entries
WHERE
    (from_account_id = $1 OR to_account_id = $1)
    AND ($2::timestamptz IS NULL OR created_at >= $2)
    AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`

// List returns the account's entries sorted by creation time descending,
// optionally bounded to [From, To).
func (r *RepoPGS) List(ctx context.Context, arg domain.ListEntriesParams) ([]domain.Entry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery,
		arg.AccountID,
		nullTime(arg.From),
		nullTime(arg.To),
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Entry{}

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, e)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const outgoingTotalQuery = `
SELECT COALESCE(SUM(amount), 0)
FROM entries
WHERE
    from_account_id = $1
    AND to_account_id IS DISTINCT FROM from_account_id
    AND status = $2
    AND created_at >= $3
    AND created_at < $4`

// OutgoingTotal sums completed outgoing amounts for the account within
// [from, to). Same-account bookkeeping entries do not count as spend.
func (r *RepoPGS) OutgoingTotal(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	var total decimal.Decimal

	row := r.db.QueryRowContext(ctx, outgoingTotalQuery,
		accountID, domain.EntryCompleted, from, to)

	if err := row.Scan(&total); err != nil {
		l.Error().Err(err).Send()
		return decimal.Zero, errorspkg.ErrInternal
	}

	return total, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
