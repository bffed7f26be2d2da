// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCurrencyMismatch indicates that transfer accounts have different currencies.
	ErrCurrencyMismatch = errors.New("accounts currency mismatch")
	// ErrAccountNotClosable indicates that the account cannot be closed in its current status.
	ErrAccountNotClosable = errors.New("account cannot be closed")
	// ErrUnsupportedCurrency indicates that the requested currency is not supported.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// AccountType enumerates supported account types.
type AccountType string

// Supported account types.
const (
	TypeChecking AccountType = "checking"
	TypeSavings  AccountType = "savings"
	TypeBusiness AccountType = "business"
)

// AccountStatus enumerates account lifecycle states.
type AccountStatus string

// Account lifecycle states. Accounts are never deleted; closing an account
// sets StatusClosed and rejects further balance mutation.
const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
	StatusFrozen   AccountStatus = "frozen"
	StatusClosed   AccountStatus = "closed"
)

// Account holds balance and limit data for a single account.
//
// Balance must stay at or above -OverdraftLimit at all times. DailyLimit and
// MonthlyLimit cap cumulative outgoing amounts per rolling window; a zero
// limit means no cap.
type Account struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Type           AccountType     `json:"type"`
	Currency       string          `json:"currency"`
	Status         AccountStatus   `json:"status"`
	Balance        decimal.Decimal `json:"balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
	DailyLimit     decimal.Decimal `json:"daily_limit"`
	MonthlyLimit   decimal.Decimal `json:"monthly_limit"`
	TimeZone       string          `json:"time_zone"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Available returns the amount the account may spend, including overdraft.
func (a Account) Available() decimal.Decimal {
	return a.Balance.Add(a.OverdraftLimit)
}

// Location resolves the account's limit-window time zone, defaulting to UTC.
func (a Account) Location() *time.Location {
	if a.TimeZone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// CreateAccountParams is the input data for opening an account.
type CreateAccountParams struct {
	OwnerID        string
	Type           AccountType
	Currency       string
	InitialDeposit decimal.Decimal
	OverdraftLimit decimal.Decimal
	DailyLimit     decimal.Decimal
	MonthlyLimit   decimal.Decimal
	TimeZone       string
}

// AccountInactiveError indicates that an account exists but cannot take part
// in a transfer because of its status.
type AccountInactiveError struct {
	AccountID string
	Status    AccountStatus
}

func (e *AccountInactiveError) Error() string {
	return fmt.Sprintf("account %s is %s", e.AccountID, e.Status)
}

// InsufficientFundsError indicates that the source account balance, including
// overdraft, does not cover the requested amount.
type InsufficientFundsError struct {
	AccountID string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %s has %s available, %s requested",
		e.AccountID, e.Available, e.Requested)
}
