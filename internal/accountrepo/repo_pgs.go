// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/dbpkg"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const accountColumns = `
	id, owner_id, type, currency, status, balance,
	overdraft_limit, daily_limit, monthly_limit, time_zone, created_at`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Type,
		&a.Currency,
		&a.Status,
		&a.Balance,
		&a.OverdraftLimit,
		&a.DailyLimit,
		&a.MonthlyLimit,
		&a.TimeZone,
		&a.CreatedAt,
	)

	return a, err
}

const createQuery = `
INSERT INTO
    accounts (id, owner_id, type, currency, status, balance,
              overdraft_limit, daily_limit, monthly_limit, time_zone)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING` + accountColumns

// Create creates the account and then returns it. The balance starts at zero;
// initial deposits are posted separately through the ledger transaction.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	tz := arg.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.NewString(),
		arg.OwnerID,
		arg.Type,
		arg.Currency,
		domain.StatusActive,
		decimal.Zero,
		arg.OverdraftLimit,
		arg.DailyLimit,
		arg.MonthlyLimit,
		tz,
	)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "accounts_type_check":
				return a, errorspkg.ErrInternal
			case "accounts_limits_check":
				return a, domain.ErrInvalidAmount
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT` + accountColumns + `
FROM accounts
WHERE id = $1`

// Get returns the account with the given id at the latest committed state.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Account, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `
FOR UPDATE`

// GetForUpdate returns the account locked for the duration of the enclosing
// transaction. Callers must lock accounts in ascending id order.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id string) (domain.Account, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const addBalanceQuery = `
UPDATE accounts
SET balance = balance + $1
WHERE id = $2
RETURNING` + accountColumns

// AddBalance changes the account's balance and returns the changed account.
func (r *RepoPGS) AddBalance(ctx context.Context, amount decimal.Decimal, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, addBalanceQuery, amount, id)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, &domain.InsufficientFundsError{
					AccountID: id,
					Requested: amount.Abs(),
				}
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const setStatusQuery = `
UPDATE accounts
SET status = $1
WHERE id = $2
RETURNING` + accountColumns

// SetStatus moves the account to the given lifecycle status.
func (r *RepoPGS) SetStatus(ctx context.Context, id string, status domain.AccountStatus) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, setStatusQuery, status, id)

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT` + accountColumns + `
FROM accounts
WHERE owner_id = $1
ORDER BY created_at
LIMIT $2 OFFSET $3`

// List returns the specified number of accounts for the given owner.
func (r *RepoPGS) List(ctx context.Context, ownerID string, limit, offset int32) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, ownerID, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID,
			&a.OwnerID,
			&a.Type,
			&a.Currency,
			&a.Status,
			&a.Balance,
			&a.OverdraftLimit,
			&a.DailyLimit,
			&a.MonthlyLimit,
			&a.TimeZone,
			&a.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
