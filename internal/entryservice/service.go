// Package entryservice manages read access to the transaction history.
package entryservice

import (
	"context"
	"time"

	"github.com/vaultbank/ledger-engine/internal/domain"
)

// Repo provides data access layer interface needed by entry service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package entryservice
type Repo interface {
	Get(ctx context.Context, id string) (domain.Entry, error)
	List(ctx context.Context, arg domain.ListEntriesParams) ([]domain.Entry, error)
}

const maxPageSize = 100

// Service facilitates entry service layer logic.
type Service struct {
	repo Repo
}

// New returns entry service struct to manage history reads.
func New(repo Repo) *Service {
	return &Service{repo: repo}
}

// Get returns the entry with the given id.
func (s *Service) Get(ctx context.Context, id string) (domain.Entry, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of the account's history sorted by creation time
// descending, optionally bounded to [from, to).
func (s *Service) List(ctx context.Context, accountID string, from, to time.Time, pageSize, pageID int32) ([]domain.Entry, error) {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	if pageID < 1 {
		pageID = 1
	}

	return s.repo.List(ctx, domain.ListEntriesParams{
		AccountID: accountID,
		From:      from,
		To:        to,
		Limit:     pageSize,
		Offset:    (pageID - 1) * pageSize,
	})
}
