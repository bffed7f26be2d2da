package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates an amount that could not be parsed.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNonPositiveAmount indicates a zero or negative amount.
	ErrNonPositiveAmount = errors.New("amount must be positive")
	// ErrSameAccount indicates a transfer between identical accounts outside
	// the bookkeeping paths that allow it.
	ErrSameAccount = errors.New("source and destination accounts are the same")
	// ErrEntryNotFound indicates that the ledger entry is not found.
	ErrEntryNotFound = errors.New("ledger entry not found")
	// ErrDuplicateReference indicates that an entry with the given reference
	// already exists. The store enforces reference uniqueness.
	ErrDuplicateReference = errors.New("duplicate reference")
	// ErrConflict indicates a transient concurrency failure. The call is safe
	// to retry with the same reference.
	ErrConflict = errors.New("transfer conflict, retry with the same reference")
)

// EntryKind enumerates the recognized kinds of money movement.
type EntryKind string

// Recognized entry kinds.
const (
	KindTransfer   EntryKind = "transfer"
	KindDeposit    EntryKind = "deposit"
	KindWithdrawal EntryKind = "withdrawal"
	KindPayment    EntryKind = "payment"
	KindFee        EntryKind = "fee"
	KindInterest   EntryKind = "interest"
)

// EntryStatus enumerates ledger entry states.
type EntryStatus string

// Entry states. Once an entry is completed or failed it is immutable;
// corrections are recorded as new compensating entries.
const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
	EntryCancelled EntryStatus = "cancelled"
)

// Entry is one immutable record of a completed or failed money movement.
//
// FromAccountID is empty for one-sided credits (deposit, interest) and
// ToAccountID is empty for one-sided debits (withdrawal, fee). The Reference
// is unique across all entries and serves as the idempotency key.
type Entry struct {
	ID               string              `json:"id"`
	Reference        string              `json:"reference"`
	FromAccountID    string              `json:"from_account_id,omitempty"`
	ToAccountID      string              `json:"to_account_id,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
	Kind             EntryKind           `json:"kind"`
	Status           EntryStatus         `json:"status"`
	FromBalanceAfter decimal.NullDecimal `json:"from_balance_after,omitempty"`
	ToBalanceAfter   decimal.NullDecimal `json:"to_balance_after,omitempty"`
	Description      string              `json:"description,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// CreateEntryParams is the input data for the atomic ledger transaction.
type CreateEntryParams struct {
	Reference     string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Kind          EntryKind
	Description   string
}

// ListEntriesParams is the input data to page through an account's history.
type ListEntriesParams struct {
	AccountID string
	From      time.Time // zero means unbounded
	To        time.Time // zero means unbounded
	Limit     int32
	Offset    int32
}

// TransferResult is the outcome of the atomic ledger transaction. Account
// balances match the entry's balance-after snapshots exactly.
type TransferResult struct {
	Entry       Entry   `json:"entry"`
	FromAccount Account `json:"from_account,omitempty"`
	ToAccount   Account `json:"to_account,omitempty"`
}

// LimitWindow names the rolling window of a transaction limit.
type LimitWindow string

// Rolling limit windows.
const (
	WindowDaily   LimitWindow = "daily"
	WindowMonthly LimitWindow = "monthly"
)

// LimitExceededError indicates that a transfer would push the account's
// cumulative outgoing amount over a configured rolling limit.
type LimitExceededError struct {
	AccountID string
	Window    LimitWindow
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Requested decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded for account %s: limit %s, spent %s, requested %s",
		e.Window, e.AccountID, e.Limit, e.Spent, e.Requested)
}

// Remaining returns how much the account may still spend within the window.
func (e *LimitExceededError) Remaining() decimal.Decimal {
	r := e.Limit.Sub(e.Spent)
	if r.IsNegative() {
		return decimal.Zero
	}

	return r
}
