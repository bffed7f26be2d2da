package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrGoalNotFound indicates that the savings goal is not found.
	ErrGoalNotFound = errors.New("goal not found")
	// ErrGoalNotActive indicates that the goal does not accept contributions.
	ErrGoalNotActive = errors.New("goal is not active")
)

// GoalStatus enumerates savings goal states.
type GoalStatus string

// Goal states.
const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalCancelled GoalStatus = "cancelled"
)

// Goal tracks progress toward a savings target funded from one account.
// CurrentAmount only changes through a completed ledger entry and never
// exceeds TargetAmount.
type Goal struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	OwnerID       string          `json:"owner_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      time.Time       `json:"deadline"`
	Status        GoalStatus      `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateGoalParams is the input data for creating a savings goal.
type CreateGoalParams struct {
	AccountID    string
	OwnerID      string
	Name         string
	TargetAmount decimal.Decimal
	Deadline     time.Time
}

// GoalOverfundError indicates a contribution that would push the goal past
// its target. Contributions are exact; overshoot is rejected, not clamped.
type GoalOverfundError struct {
	GoalID    string
	Target    decimal.Decimal
	Current   decimal.Decimal
	Requested decimal.Decimal
}

func (e *GoalOverfundError) Error() string {
	return fmt.Sprintf("goal %s would be overfunded: target %s, current %s, requested %s",
		e.GoalID, e.Target, e.Current, e.Requested)
}

// Remaining returns the amount still needed to reach the target.
func (e *GoalOverfundError) Remaining() decimal.Decimal {
	return e.Target.Sub(e.Current)
}
