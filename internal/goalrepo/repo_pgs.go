// Package goalrepo manages repository layer of savings goals.
package goalrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/dbpkg"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
)

// RepoPGS facilitates goal repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns goal RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const goalColumns = `
	id, account_id, owner_id, name, target_amount, current_amount,
	deadline, status, created_at`

func scanGoal(row *sql.Row) (domain.Goal, error) {
	var (
		g        domain.Goal
		deadline sql.NullTime
	)

	err := row.Scan(
		&g.ID,
		&g.AccountID,
		&g.OwnerID,
		&g.Name,
		&g.TargetAmount,
		&g.CurrentAmount,
		&deadline,
		&g.Status,
		&g.CreatedAt,
	)

	g.Deadline = deadline.Time

	return g, err
}

const createQuery = `
INSERT INTO
    goals (id, account_id, owner_id, name, target_amount, deadline, status)
VALUES
    ($1, $2, $3, $4, $5, $6, $7)
RETURNING` + goalColumns

// Create creates the goal and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateGoalParams) (domain.Goal, error) {
	l := zerolog.Ctx(ctx)

	deadline := sql.NullTime{Time: arg.Deadline, Valid: !arg.Deadline.IsZero()}

	row := r.db.QueryRowContext(ctx, createQuery,
		uuid.NewString(),
		arg.AccountID,
		arg.OwnerID,
		arg.Name,
		arg.TargetAmount,
		deadline,
		domain.GoalActive,
	)

	g, err := scanGoal(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)
		return g, errorspkg.ErrInternal
	}

	return g, nil
}

const getQuery = `
SELECT` + goalColumns + `
FROM goals
WHERE id = $1`

// Get returns the goal with the given id.
func (r *RepoPGS) Get(ctx context.Context, id string) (domain.Goal, error) {
	return get(ctx, r.db, getQuery, id)
}

const getForUpdateQuery = getQuery + `
FOR UPDATE`

func get(ctx context.Context, db dbpkg.SQLInterface, query, id string) (domain.Goal, error) {
	l := zerolog.Ctx(ctx)

	g, err := scanGoal(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, domain.ErrGoalNotFound
		}

		l.Error().Err(err).Send()

		return g, errorspkg.ErrInternal
	}

	return g, nil
}

const listByOwnerQuery = `
SELECT` + goalColumns + `
FROM goals
WHERE owner_id = $1
ORDER BY created_at
LIMIT $2 OFFSET $3`

// ListByOwner returns the owner's goals.
func (r *RepoPGS) ListByOwner(ctx context.Context, ownerID string, limit, offset int32) ([]domain.Goal, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByOwnerQuery, ownerID, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Goal{}

	for rows.Next() {
		var (
			g        domain.Goal
			deadline sql.NullTime
		)

		if err := rows.Scan(
			&g.ID,
			&g.AccountID,
			&g.OwnerID,
			&g.Name,
			&g.TargetAmount,
			&g.CurrentAmount,
			&deadline,
			&g.Status,
			&g.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		g.Deadline = deadline.Time

		items = append(items, g)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const setStatusQuery = `
UPDATE goals
SET status = $1
WHERE id = $2
RETURNING` + goalColumns

// SetStatus moves the goal to the given status.
func (r *RepoPGS) SetStatus(ctx context.Context, id string, status domain.GoalStatus) (domain.Goal, error) {
	l := zerolog.Ctx(ctx)

	g, err := scanGoal(r.db.QueryRowContext(ctx, setStatusQuery, status, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, domain.ErrGoalNotFound
		}

		l.Error().Err(err).Send()

		return g, errorspkg.ErrInternal
	}

	return g, nil
}

const applyContributionQuery = `
UPDATE goals
SET current_amount = current_amount + $1, status = $2
WHERE id = $3
RETURNING` + goalColumns

// ApplyContribution returns a dbpkg.TxFunc that increments the goal's
// progress inside the ledger transaction that debits the funding account.
// The goal row is locked, re-validated against the fresh state, and flipped
// to completed when the target is reached, all within the same atomic unit.
func ApplyContribution(goalID string, amount decimal.Decimal) dbpkg.TxFunc {
	return func(ctx context.Context, db dbpkg.SQLInterface) error {
		l := zerolog.Ctx(ctx)

		g, err := get(ctx, db, getForUpdateQuery, goalID)
		if err != nil {
			return err
		}

		if g.Status != domain.GoalActive {
			return domain.ErrGoalNotActive
		}

		next := g.CurrentAmount.Add(amount)
		if next.GreaterThan(g.TargetAmount) {
			return &domain.GoalOverfundError{
				GoalID:    g.ID,
				Target:    g.TargetAmount,
				Current:   g.CurrentAmount,
				Requested: amount,
			}
		}

		status := domain.GoalActive
		if next.Equal(g.TargetAmount) {
			status = domain.GoalCompleted
		}

		if _, err := scanGoal(db.QueryRowContext(ctx, applyContributionQuery, amount, status, goalID)); err != nil {
			l.Error().Err(err).Send()
			return errorspkg.ErrInternal
		}

		return nil
	}
}
