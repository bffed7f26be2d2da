// Package limits evaluates rolling daily and monthly spending limits.
package limits

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
)

// EntryReader provides the ledger reads the evaluator needs.
//
//go:generate mockgen -source limits.go -destination limits_mock.go -package limits
type EntryReader interface {
	OutgoingTotal(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error)
}

// Evaluator computes rolling-window spend against an account's limits. It
// must read entries at the same consistency level as the caller: inside the
// ledger transaction it is constructed over the transaction handle, so limit
// checks see exactly the committed state being mutated.
type Evaluator struct {
	entries EntryReader
}

// New returns an Evaluator over the given entry reader.
func New(er EntryReader) *Evaluator {
	return &Evaluator{entries: er}
}

// DayWindow returns the [start, end) bounds of the day containing now in loc.
func DayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	return start, start.AddDate(0, 0, 1)
}

// MonthWindow returns the [start, end) bounds of the month containing now in loc.
func MonthWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)

	return start, start.AddDate(0, 1, 0)
}

// OutgoingTotal returns the account's completed outgoing amount within
// [windowStart, windowEnd).
func (e *Evaluator) OutgoingTotal(ctx context.Context, accountID string, windowStart, windowEnd time.Time) (decimal.Decimal, error) {
	return e.entries.OutgoingTotal(ctx, accountID, windowStart, windowEnd)
}

// Check verifies that debiting amount from the account keeps both rolling
// windows within their configured limits. A zero limit means no cap.
func (e *Evaluator) Check(ctx context.Context, account domain.Account, amount decimal.Decimal, now time.Time) error {
	loc := account.Location()

	if account.DailyLimit.IsPositive() {
		start, end := DayWindow(now, loc)

		if err := e.checkWindow(ctx, account, amount, domain.WindowDaily, account.DailyLimit, start, end); err != nil {
			return err
		}
	}

	if account.MonthlyLimit.IsPositive() {
		start, end := MonthWindow(now, loc)

		if err := e.checkWindow(ctx, account, amount, domain.WindowMonthly, account.MonthlyLimit, start, end); err != nil {
			return err
		}
	}

	return nil
}

func (e *Evaluator) checkWindow(
	ctx context.Context,
	account domain.Account,
	amount decimal.Decimal,
	window domain.LimitWindow,
	limit decimal.Decimal,
	start, end time.Time,
) error {
	spent, err := e.entries.OutgoingTotal(ctx, account.ID, start, end)
	if err != nil {
		return err
	}

	if spent.Add(amount).GreaterThan(limit) {
		return &domain.LimitExceededError{
			AccountID: account.ID,
			Window:    window,
			Limit:     limit,
			Spent:     spent,
			Requested: amount,
		}
	}

	return nil
}
