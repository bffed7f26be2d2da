// Package transferrepo implements the atomic ledger transaction.
package transferrepo

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/accountrepo"
	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/internal/entryrepo"
	"github.com/vaultbank/ledger-engine/internal/limits"
	"github.com/vaultbank/ledger-engine/pkg/dbpkg"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
)

// RepoPGS executes ledger transactions against Postgres.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns transfer RepoPGS with a connection to start transactions.
func NewRepoPGS(conn *sql.DB) *RepoPGS {
	return &RepoPGS{conn: conn}
}

// Execute moves money between the accounts named by arg as a single
// all-or-nothing unit: both balance mutations and the ledger append commit
// together or not at all.
//
// Account rows are locked in ascending id order so that opposite-direction
// transfers between the same pair cannot deadlock. Status, funds and limit
// checks run against the freshly locked state; any advisory checks the caller
// made before are not trusted. The optional inTx funcs run inside the same
// transaction after the balance updates, before commit.
func (r *RepoPGS) Execute(ctx context.Context, arg domain.CreateEntryParams, inTx ...dbpkg.TxFunc) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferResult

	if arg.Reference == "" {
		arg.Reference = uuid.NewString()
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrUnavailable
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	accountRepo := accountrepo.NewRepoPGS(tx)
	entryRepo := entryrepo.NewRepoPGS(tx)
	evaluator := limits.New(entryRepo)

	accounts, err := lockAccounts(ctx, accountRepo, arg.FromAccountID, arg.ToAccountID)
	if err != nil {
		return result, err
	}

	if err := validate(ctx, evaluator, accounts, arg); err != nil {
		return result, err
	}

	entry := buildEntry(accounts, arg)

	result.Entry, err = entryRepo.Create(ctx, entry)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			// Lost the race against a concurrent submission with the same
			// reference. Abort this unit and replay the winner's outcome.
			if rbErr := tx.Rollback(); rbErr != nil {
				l.Error().Err(rbErr).Send()
			}

			return r.replay(ctx, arg.Reference)
		}

		return result, err
	}

	if err := r.applyBalances(ctx, accountRepo, &result, arg); err != nil {
		return result, err
	}

	for _, fn := range inTx {
		if err := fn(ctx, tx); err != nil {
			return domain.TransferResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferResult{}, commitError(err)
	}

	return result, nil
}

// Open inserts the account and, when arg carries an initial deposit, the
// funding entry plus the balance credit in the same transaction. A failure at
// any step leaves no account behind. The optional inTx funcs run inside the
// transaction before commit.
func (r *RepoPGS) Open(ctx context.Context, arg domain.CreateAccountParams, inTx ...dbpkg.TxFunc) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferResult

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrUnavailable
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	accountRepo := accountrepo.NewRepoPGS(tx)
	entryRepo := entryrepo.NewRepoPGS(tx)

	result.ToAccount, err = accountRepo.Create(ctx, arg)
	if err != nil {
		return domain.TransferResult{}, err
	}

	if arg.InitialDeposit.IsPositive() {
		result.Entry, err = entryRepo.Create(ctx, domain.Entry{
			Reference:      uuid.NewString(),
			ToAccountID:    result.ToAccount.ID,
			Amount:         arg.InitialDeposit,
			Kind:           domain.KindDeposit,
			Status:         domain.EntryCompleted,
			Description:    "initial deposit",
			ToBalanceAfter: decimal.NewNullDecimal(arg.InitialDeposit),
		})
		if err != nil {
			return domain.TransferResult{}, err
		}

		result.ToAccount, err = accountRepo.AddBalance(ctx, arg.InitialDeposit, result.ToAccount.ID)
		if err != nil {
			return domain.TransferResult{}, err
		}
	}

	for _, fn := range inTx {
		if err := fn(ctx, tx); err != nil {
			return domain.TransferResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.TransferResult{}, commitError(err)
	}

	return result, nil
}

// lockAccounts acquires FOR UPDATE locks on every distinct account involved,
// in ascending id order.
func lockAccounts(ctx context.Context, repo *accountrepo.RepoPGS, ids ...string) (map[string]domain.Account, error) {
	distinct := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if id != "" && !seen[id] {
			distinct = append(distinct, id)
			seen[id] = true
		}
	}

	sort.Strings(distinct)

	accounts := make(map[string]domain.Account, len(distinct))

	for _, id := range distinct {
		a, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}

		accounts[id] = a
	}

	return accounts, nil
}

func validate(ctx context.Context, evaluator *limits.Evaluator, accounts map[string]domain.Account, arg domain.CreateEntryParams) error {
	for _, a := range accounts {
		if a.Status != domain.StatusActive {
			return &domain.AccountInactiveError{AccountID: a.ID, Status: a.Status}
		}
	}

	from, debits := accounts[arg.FromAccountID]
	to, credits := accounts[arg.ToAccountID]

	if debits && credits && from.Currency != to.Currency {
		return domain.ErrCurrencyMismatch
	}

	if !debits {
		return nil
	}

	if from.Available().LessThan(arg.Amount) {
		return &domain.InsufficientFundsError{
			AccountID: from.ID,
			Available: from.Available(),
			Requested: arg.Amount,
		}
	}

	// Same-account bookkeeping entries leave the balance untouched and do
	// not count as outgoing spend.
	if arg.FromAccountID == arg.ToAccountID {
		return nil
	}

	return evaluator.Check(ctx, from, arg.Amount, time.Now())
}

func buildEntry(accounts map[string]domain.Account, arg domain.CreateEntryParams) domain.Entry {
	entry := domain.Entry{
		Reference:     arg.Reference,
		FromAccountID: arg.FromAccountID,
		ToAccountID:   arg.ToAccountID,
		Amount:        arg.Amount,
		Kind:          arg.Kind,
		Status:        domain.EntryCompleted,
		Description:   arg.Description,
	}

	if from, ok := accounts[arg.FromAccountID]; ok {
		after := from.Balance
		if arg.FromAccountID != arg.ToAccountID {
			after = after.Sub(arg.Amount)
		}

		entry.FromBalanceAfter = decimal.NewNullDecimal(after)
	}

	if to, ok := accounts[arg.ToAccountID]; ok {
		after := to.Balance
		if arg.FromAccountID != arg.ToAccountID {
			after = after.Add(arg.Amount)
		}

		entry.ToBalanceAfter = decimal.NewNullDecimal(after)
	}

	return entry
}

// applyBalances debits and credits inside the open transaction and fills the
// result's account snapshots.
func (r *RepoPGS) applyBalances(ctx context.Context, repo *accountrepo.RepoPGS, result *domain.TransferResult, arg domain.CreateEntryParams) error {
	if arg.FromAccountID == arg.ToAccountID && arg.FromAccountID != "" {
		a, err := repo.Get(ctx, arg.FromAccountID)
		if err != nil {
			return err
		}

		result.FromAccount, result.ToAccount = a, a

		return nil
	}

	if arg.FromAccountID != "" {
		a, err := repo.AddBalance(ctx, arg.Amount.Neg(), arg.FromAccountID)
		if err != nil {
			return err
		}

		result.FromAccount = a
	}

	if arg.ToAccountID != "" {
		a, err := repo.AddBalance(ctx, arg.Amount, arg.ToAccountID)
		if err != nil {
			return err
		}

		result.ToAccount = a
	}

	return nil
}

// replay resolves a duplicate-reference race. Only a completed winner is
// replayed; anything else is a transient conflict the caller may retry.
func (r *RepoPGS) replay(ctx context.Context, reference string) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferResult

	entryRepo := entryrepo.NewRepoPGS(r.conn)
	accountRepo := accountrepo.NewRepoPGS(r.conn)

	existing, err := entryRepo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return result, domain.ErrConflict
		}

		return result, err
	}

	if existing.Status != domain.EntryCompleted {
		return result, domain.ErrConflict
	}

	result.Entry = existing

	if existing.FromAccountID != "" {
		result.FromAccount, err = accountRepo.Get(ctx, existing.FromAccountID)
		if err != nil {
			l.Error().Err(err).Send()
			return result, err
		}
	}

	if existing.ToAccountID != "" {
		result.ToAccount, err = accountRepo.Get(ctx, existing.ToAccountID)
		if err != nil {
			l.Error().Err(err).Send()
			return result, err
		}
	}

	return result, nil
}

func commitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrConflict
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return domain.ErrConflict
		}

		if pqErr.Code.Class() == "08" { // connection failures
			return errorspkg.ErrUnavailable
		}
	}

	return errorspkg.ErrInternal
}
