// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/currencypkg"
	"github.com/vaultbank/ledger-engine/pkg/dbpkg"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Get(ctx context.Context, id string) (domain.Account, error)
	SetStatus(ctx context.Context, id string, status domain.AccountStatus) (domain.Account, error)
	List(ctx context.Context, ownerID string, limit, offset int32) ([]domain.Account, error)
}

// Ledger provides the atomic ledger transactions: account opening, deposits
// and withdrawals.
type Ledger interface {
	Open(ctx context.Context, arg domain.CreateAccountParams, inTx ...dbpkg.TxFunc) (domain.TransferResult, error)
	Execute(ctx context.Context, arg domain.CreateEntryParams, inTx ...dbpkg.TxFunc) (domain.TransferResult, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo   Repo
	ledger Ledger
}

// New returns account service struct to manage account business logic.
func New(repo Repo, ledger Ledger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

// Open creates the account and, when an initial deposit is given, its funding
// deposit entry in one atomic unit. A failed open never leaves an account
// behind.
func (s *Service) Open(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if !currencypkg.IsSupportedCurrency(arg.Currency) {
		return domain.Account{}, domain.ErrUnsupportedCurrency
	}

	if arg.InitialDeposit.IsNegative() {
		return domain.Account{}, domain.ErrNonPositiveAmount
	}

	result, err := s.ledger.Open(ctx, arg)
	if err != nil {
		return domain.Account{}, err
	}

	return result.ToAccount, nil
}

// Get returns the account at the latest committed state.
func (s *Service) Get(ctx context.Context, id string) (domain.Account, error) {
	return s.repo.Get(ctx, id)
}

// GetBalance returns the account's latest committed balance.
func (s *Service) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	return account.Balance, nil
}

// List returns accounts that are owned by the given owner.
func (s *Service) List(ctx context.Context, ownerID string, pageSize, pageID int32) ([]domain.Account, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	return s.repo.List(ctx, ownerID, limit, offset)
}

// Deposit credits the account through a one-sided deposit entry.
func (s *Service) Deposit(ctx context.Context, accountID, amount, reference string) (domain.TransferResult, error) {
	d, err := parsePositive(amount)
	if err != nil {
		return domain.TransferResult{}, err
	}

	return s.ledger.Execute(ctx, domain.CreateEntryParams{
		Reference:   reference,
		ToAccountID: accountID,
		Amount:      d,
		Kind:        domain.KindDeposit,
	})
}

// Withdraw debits the account through a one-sided withdrawal entry.
// Withdrawals count toward the account's rolling limits.
func (s *Service) Withdraw(ctx context.Context, accountID, amount, reference string) (domain.TransferResult, error) {
	d, err := parsePositive(amount)
	if err != nil {
		return domain.TransferResult{}, err
	}

	return s.ledger.Execute(ctx, domain.CreateEntryParams{
		Reference:     reference,
		FromAccountID: accountID,
		Amount:        d,
		Kind:          domain.KindWithdrawal,
	})
}

// Close moves the account to closed. Closed accounts reject all further
// balance mutation; the account record itself is never deleted.
func (s *Service) Close(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	if account.Status == domain.StatusClosed {
		return domain.Account{}, domain.ErrAccountNotClosable
	}

	return s.repo.SetStatus(ctx, id, domain.StatusClosed)
}

func parsePositive(amount string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	if !d.IsPositive() {
		return decimal.Zero, domain.ErrNonPositiveAmount
	}

	return d, nil
}
