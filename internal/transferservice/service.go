// Package transferservice orchestrates money movement between accounts.
package transferservice

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/dbpkg"
)

// Repo provides the atomic ledger transaction needed by the orchestrator.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Execute(ctx context.Context, arg domain.CreateEntryParams, inTx ...dbpkg.TxFunc) (domain.TransferResult, error)
}

// AccountReader provides account reads for advisory validation.
type AccountReader interface {
	Get(ctx context.Context, id string) (domain.Account, error)
}

// EntryReader provides ledger reads for idempotent replay detection.
type EntryReader interface {
	GetByReference(ctx context.Context, reference string) (domain.Entry, error)
}

// LimitChecker verifies rolling-window limits against a candidate amount.
type LimitChecker interface {
	Check(ctx context.Context, account domain.Account, amount decimal.Decimal, now time.Time) error
}

// Service facilitates transfer orchestration logic.
//
// Validation here is advisory and lock-free; the authoritative checks run
// again inside the repo's transaction against freshly locked state.
type Service struct {
	repo     Repo
	accounts AccountReader
	entries  EntryReader
	limits   LimitChecker
	timeout  time.Duration
}

// New returns transfer service struct to orchestrate money movement.
// A positive timeout bounds the atomic unit; an expired timeout surfaces as
// domain.ErrConflict, safe to retry with the same reference.
func New(repo Repo, accounts AccountReader, entries EntryReader, limits LimitChecker, timeout time.Duration) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		entries:  entries,
		limits:   limits,
		timeout:  timeout,
	}
}

// execute runs the atomic unit under the configured timeout.
func (s *Service) execute(ctx context.Context, arg domain.CreateEntryParams, inTx ...dbpkg.TxFunc) (domain.TransferResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.repo.Execute(ctx, arg, inTx...)
	if err != nil && ctx.Err() != nil {
		return domain.TransferResult{}, domain.ErrConflict
	}

	return result, err
}

// TransferParams is the input data for a transfer request.
type TransferParams struct {
	FromAccountID string
	ToAccountID   string
	Amount        string
	Description   string
	Reference     string
}

// Transfer validates the request and executes the transfer as one atomic
// unit. Retrying with the same reference replays the original outcome
// instead of moving money twice.
func (s *Service) Transfer(ctx context.Context, arg TransferParams) (domain.TransferResult, error) {
	amount, err := parseAmount(arg.Amount)
	if err != nil {
		return domain.TransferResult{}, err
	}

	if arg.FromAccountID == arg.ToAccountID {
		return domain.TransferResult{}, domain.ErrSameAccount
	}

	if replayed, result, err := s.replay(ctx, arg.Reference); replayed {
		return result, err
	}

	from, err := s.activeAccount(ctx, arg.FromAccountID)
	if err != nil {
		return domain.TransferResult{}, err
	}

	to, err := s.activeAccount(ctx, arg.ToAccountID)
	if err != nil {
		return domain.TransferResult{}, err
	}

	if from.Currency != to.Currency {
		return domain.TransferResult{}, domain.ErrCurrencyMismatch
	}

	if from.Available().LessThan(amount) {
		return domain.TransferResult{}, &domain.InsufficientFundsError{
			AccountID: from.ID,
			Available: from.Available(),
			Requested: amount,
		}
	}

	if err := s.limits.Check(ctx, from, amount, time.Now()); err != nil {
		return domain.TransferResult{}, err
	}

	return s.execute(ctx, domain.CreateEntryParams{
		Reference:     arg.Reference,
		FromAccountID: arg.FromAccountID,
		ToAccountID:   arg.ToAccountID,
		Amount:        amount,
		Kind:          domain.KindTransfer,
		Description:   arg.Description,
	})
}

// Contribute executes a same-account bookkeeping transfer and runs apply
// within the same transaction. The goal contribution adapter uses it to keep
// the balance entry and the goal progress update in one atomic unit.
func (s *Service) Contribute(ctx context.Context, arg TransferParams, apply dbpkg.TxFunc) (domain.TransferResult, error) {
	amount, err := parseAmount(arg.Amount)
	if err != nil {
		return domain.TransferResult{}, err
	}

	if replayed, result, err := s.replay(ctx, arg.Reference); replayed {
		return result, err
	}

	from, err := s.activeAccount(ctx, arg.FromAccountID)
	if err != nil {
		return domain.TransferResult{}, err
	}

	if from.Available().LessThan(amount) {
		return domain.TransferResult{}, &domain.InsufficientFundsError{
			AccountID: from.ID,
			Available: from.Available(),
			Requested: amount,
		}
	}

	return s.execute(ctx, domain.CreateEntryParams{
		Reference:     arg.Reference,
		FromAccountID: arg.FromAccountID,
		ToAccountID:   arg.FromAccountID,
		Amount:        amount,
		Kind:          domain.KindTransfer,
		Description:   arg.Description,
	}, apply)
}

func (s *Service) activeAccount(ctx context.Context, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	account, err := s.accounts.Get(ctx, id)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.Account{}, err
	}

	if account.Status != domain.StatusActive {
		return domain.Account{}, &domain.AccountInactiveError{
			AccountID: account.ID,
			Status:    account.Status,
		}
	}

	return account, nil
}

// replay reports whether the reference already names a finished transfer.
// A completed entry is returned unchanged; an unfinished one is a conflict.
func (s *Service) replay(ctx context.Context, reference string) (bool, domain.TransferResult, error) {
	if reference == "" {
		return false, domain.TransferResult{}, nil
	}

	existing, err := s.entries.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return false, domain.TransferResult{}, nil
		}

		return true, domain.TransferResult{}, err
	}

	if existing.Status != domain.EntryCompleted {
		return true, domain.TransferResult{}, domain.ErrConflict
	}

	result := domain.TransferResult{Entry: existing}

	if existing.FromAccountID != "" {
		if result.FromAccount, err = s.accounts.Get(ctx, existing.FromAccountID); err != nil {
			return true, domain.TransferResult{}, err
		}
	}

	if existing.ToAccountID != "" {
		if result.ToAccount, err = s.accounts.Get(ctx, existing.ToAccountID); err != nil {
			return true, domain.TransferResult{}, err
		}
	}

	return true, result, nil
}

func parseAmount(amount string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	if !d.IsPositive() {
		return decimal.Zero, domain.ErrNonPositiveAmount
	}

	return d, nil
}
