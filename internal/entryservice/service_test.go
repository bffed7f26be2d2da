package entryservice

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/randompkg"
)

func TestGet(t *testing.T) {
	t.Parallel()

	entry := domain.Entry{
		ID:        randompkg.Reference(),
		Reference: randompkg.Reference(),
		Amount:    decimal.RequireFromString("100"),
		Kind:      domain.KindTransfer,
		Status:    domain.EntryCompleted,
	}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockRepo(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Eq(entry.ID)).Return(entry, nil)

	got, err := New(repo).Get(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, entry, got)
}

func TestList(t *testing.T) {
	t.Parallel()

	accountID := randompkg.Reference()
	from := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		pageSize int32
		pageID   int32
		wantArg  domain.ListEntriesParams
	}{
		{
			name:     "plain page",
			pageSize: 10,
			pageID:   3,
			wantArg: domain.ListEntriesParams{
				AccountID: accountID,
				From:      from,
				To:        to,
				Limit:     10,
				Offset:    20,
			},
		},
		{
			name:     "zero page size clamps to max",
			pageSize: 0,
			pageID:   1,
			wantArg: domain.ListEntriesParams{
				AccountID: accountID,
				From:      from,
				To:        to,
				Limit:     100,
				Offset:    0,
			},
		},
		{
			name:     "oversized page clamps to max",
			pageSize: 500,
			pageID:   2,
			wantArg: domain.ListEntriesParams{
				AccountID: accountID,
				From:      from,
				To:        to,
				Limit:     100,
				Offset:    100,
			},
		},
		{
			name:     "page id below one resets to first page",
			pageSize: 25,
			pageID:   0,
			wantArg: domain.ListEntriesParams{
				AccountID: accountID,
				From:      from,
				To:        to,
				Limit:     25,
				Offset:    0,
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			repo.EXPECT().List(gomock.Any(), gomock.Eq(tc.wantArg)).
				Times(1).
				Return([]domain.Entry{}, nil)

			got, err := New(repo).List(context.Background(), accountID, from, to, tc.pageSize, tc.pageID)
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}
