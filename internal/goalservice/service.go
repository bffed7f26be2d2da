// Package goalservice adapts savings goal contributions onto the ledger.
package goalservice

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/internal/goalrepo"
	"github.com/vaultbank/ledger-engine/internal/transferservice"
	"github.com/vaultbank/ledger-engine/pkg/dbpkg"
)

// Repo provides data access layer interface needed by goal service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package goalservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateGoalParams) (domain.Goal, error)
	Get(ctx context.Context, id string) (domain.Goal, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int32) ([]domain.Goal, error)
	SetStatus(ctx context.Context, id string, status domain.GoalStatus) (domain.Goal, error)
}

// Orchestrator provides the transfer path a contribution rides on.
type Orchestrator interface {
	Contribute(ctx context.Context, arg transferservice.TransferParams, apply dbpkg.TxFunc) (domain.TransferResult, error)
}

// Service facilitates goal service layer logic.
type Service struct {
	repo         Repo
	orchestrator Orchestrator
}

// New returns goal service struct to manage goal business logic.
func New(repo Repo, orchestrator Orchestrator) *Service {
	return &Service{repo: repo, orchestrator: orchestrator}
}

// Create creates a savings goal funded from the given account.
func (s *Service) Create(ctx context.Context, arg domain.CreateGoalParams) (domain.Goal, error) {
	if !arg.TargetAmount.IsPositive() {
		return domain.Goal{}, domain.ErrNonPositiveAmount
	}

	return s.repo.Create(ctx, arg)
}

// Get returns the goal with the given id.
func (s *Service) Get(ctx context.Context, id string) (domain.Goal, error) {
	return s.repo.Get(ctx, id)
}

// ListByOwner returns the owner's goals.
func (s *Service) ListByOwner(ctx context.Context, ownerID string, pageSize, pageID int32) ([]domain.Goal, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	return s.repo.ListByOwner(ctx, ownerID, limit, offset)
}

// Contribute moves amount from the funding account into the goal. The
// balance entry and the goal progress increment commit in one atomic unit;
// reaching the target flips the goal to completed in the same unit.
//
// Overshooting the target is rejected exactly, never clamped.
func (s *Service) Contribute(ctx context.Context, goalID, fromAccountID, amount, reference string) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	goal, err := s.repo.Get(ctx, goalID)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.TransferResult{}, err
	}

	if goal.Status != domain.GoalActive {
		return domain.TransferResult{}, domain.ErrGoalNotActive
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.TransferResult{}, domain.ErrInvalidAmount
	}

	if !d.IsPositive() {
		return domain.TransferResult{}, domain.ErrNonPositiveAmount
	}

	if goal.CurrentAmount.Add(d).GreaterThan(goal.TargetAmount) {
		return domain.TransferResult{}, &domain.GoalOverfundError{
			GoalID:    goal.ID,
			Target:    goal.TargetAmount,
			Current:   goal.CurrentAmount,
			Requested: d,
		}
	}

	if fromAccountID == "" {
		fromAccountID = goal.AccountID
	}

	arg := transferservice.TransferParams{
		FromAccountID: fromAccountID,
		Amount:        amount,
		Description:   "contribution to goal " + goal.Name,
		Reference:     reference,
	}

	return s.orchestrator.Contribute(ctx, arg, goalrepo.ApplyContribution(goalID, d))
}

// Cancel moves an active goal to cancelled. Accumulated progress stays on
// the books; no compensating entry is written.
func (s *Service) Cancel(ctx context.Context, id string) (domain.Goal, error) {
	goal, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Goal{}, err
	}

	if goal.Status != domain.GoalActive {
		return domain.Goal{}, domain.ErrGoalNotActive
	}

	return s.repo.SetStatus(ctx, id, domain.GoalCancelled)
}
