package accountservice

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/currencypkg"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
	"github.com/vaultbank/ledger-engine/pkg/randompkg"
)

func testAccount(balance string) domain.Account {
	return domain.Account{
		ID:        randompkg.Reference(),
		OwnerID:   randompkg.Owner(),
		Type:      domain.TypeChecking,
		Currency:  currencypkg.USD,
		Status:    domain.StatusActive,
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	created := testAccount("0")
	funded := created
	funded.Balance = decimal.RequireFromString("500")

	testCases := []struct {
		name          string
		arg           domain.CreateAccountParams
		buildStubs    func(repo *MockRepo, ledger *MockLedger)
		checkResponse func(account domain.Account, err error)
	}{
		{
			name: "Unsupported currency",
			arg: domain.CreateAccountParams{
				OwnerID:  created.OwnerID,
				Type:     domain.TypeChecking,
				Currency: "XXX",
			},
			buildStubs: func(repo *MockRepo, ledger *MockLedger) {
				ledger.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(account domain.Account, err error) {
				require.Empty(t, account)
				require.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
			},
		},
		{
			name: "Negative initial deposit",
			arg: domain.CreateAccountParams{
				OwnerID:        created.OwnerID,
				Type:           domain.TypeChecking,
				Currency:       currencypkg.USD,
				InitialDeposit: decimal.RequireFromString("-100"),
			},
			buildStubs: func(repo *MockRepo, ledger *MockLedger) {
				ledger.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(account domain.Account, err error) {
				require.Empty(t, account)
				require.ErrorIs(t, err, domain.ErrNonPositiveAmount)
			},
		},
		{
			name: "Ledger error leaves nothing behind",
			arg: domain.CreateAccountParams{
				OwnerID:  created.OwnerID,
				Type:     domain.TypeChecking,
				Currency: currencypkg.USD,
			},
			buildStubs: func(repo *MockRepo, ledger *MockLedger) {
				ledger.EXPECT().Open(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransferResult{}, errorspkg.ErrInternal)
			},
			checkResponse: func(account domain.Account, err error) {
				require.Empty(t, account)
				require.ErrorIs(t, err, errorspkg.ErrInternal)
			},
		},
		{
			name: "No initial deposit",
			arg: domain.CreateAccountParams{
				OwnerID:  created.OwnerID,
				Type:     domain.TypeChecking,
				Currency: currencypkg.USD,
			},
			buildStubs: func(repo *MockRepo, ledger *MockLedger) {
				ledger.EXPECT().Open(gomock.Any(), gomock.Eq(domain.CreateAccountParams{
					OwnerID:  created.OwnerID,
					Type:     domain.TypeChecking,
					Currency: currencypkg.USD,
				})).
					Times(1).
					Return(domain.TransferResult{ToAccount: created}, nil)
			},
			checkResponse: func(account domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, created, account)
			},
		},
		{
			name: "Initial deposit funds the account",
			arg: domain.CreateAccountParams{
				OwnerID:        created.OwnerID,
				Type:           domain.TypeChecking,
				Currency:       currencypkg.USD,
				InitialDeposit: decimal.RequireFromString("500"),
			},
			buildStubs: func(repo *MockRepo, ledger *MockLedger) {
				ledger.EXPECT().Open(gomock.Any(), gomock.Eq(domain.CreateAccountParams{
					OwnerID:        created.OwnerID,
					Type:           domain.TypeChecking,
					Currency:       currencypkg.USD,
					InitialDeposit: decimal.RequireFromString("500"),
				})).
					Times(1).
					Return(domain.TransferResult{ToAccount: funded}, nil)
			},
			checkResponse: func(account domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, funded, account)
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
			ledger := NewMockLedger(ctrl)

			tc.buildStubs(repo, ledger)

			service := New(repo, ledger)

			tc.checkResponse(service.Open(context.Background(), tc.arg))
		})
	}
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	account := testAccount("250.75")

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockRepo(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).Return(account, nil)

	service := New(repo, NewMockLedger(ctrl))

	balance, err := service.GetBalance(context.Background(), account.ID)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("250.75")))
}

func TestList(t *testing.T) {
	t.Parallel()

	owner := randompkg.Owner()
	accounts := []domain.Account{testAccount("100"), testAccount("200")}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockRepo(ctrl)
	repo.EXPECT().
		List(gomock.Any(), gomock.Eq(owner), gomock.Eq(int32(10)), gomock.Eq(int32(20))).
		Return(accounts, nil)

	service := New(repo, NewMockLedger(ctrl))

	got, err := service.List(context.Background(), owner, 10, 3)
	require.NoError(t, err)
	require.Equal(t, accounts, got)
}

func TestDeposit(t *testing.T) {
	t.Parallel()

	account := testAccount("100")
	reference := randompkg.Reference()

	testCases := []struct {
		name          string
		amount        string
		buildStubs    func(ledger *MockLedger)
		checkResponse func(res domain.TransferResult, err error)
	}{
		{
			name:   "Invalid amount",
			amount: "abc",
			buildStubs: func(ledger *MockLedger) {
				ledger.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.Empty(t, res)
				require.ErrorIs(t, err, domain.ErrInvalidAmount)
			},
		},
		{
			name:   "Zero amount",
			amount: "0",
			buildStubs: func(ledger *MockLedger) {
				ledger.EXPECT().Execute(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.Empty(t, res)
				require.ErrorIs(t, err, domain.ErrNonPositiveAmount)
			},
		},
		{
			name:   "OK",
			amount: "50",
			buildStubs: func(ledger *MockLedger) {
				ledger.EXPECT().Execute(gomock.Any(), gomock.Eq(domain.CreateEntryParams{
					Reference:   reference,
					ToAccountID: account.ID,
					Amount:      decimal.RequireFromString("50"),
					Kind:        domain.KindDeposit,
				})).
					Times(1).
					Return(domain.TransferResult{ToAccount: account}, nil)
			},
			checkResponse: func(res domain.TransferResult, err error) {
				require.NoError(t, err)
				require.Equal(t, account, res.ToAccount)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			ledger := NewMockLedger(ctrl)
			tc.buildStubs(ledger)

			service := New(NewMockRepo(ctrl), ledger)

			tc.checkResponse(service.Deposit(context.Background(), account.ID, tc.amount, reference))
		})
	}
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	account := testAccount("100")
	reference := randompkg.Reference()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := NewMockLedger(ctrl)
	ledger.EXPECT().Execute(gomock.Any(), gomock.Eq(domain.CreateEntryParams{
		Reference:     reference,
		FromAccountID: account.ID,
		Amount:        decimal.RequireFromString("30"),
		Kind:          domain.KindWithdrawal,
	})).
		Times(1).
		Return(domain.TransferResult{FromAccount: account}, nil)

	service := New(NewMockRepo(ctrl), ledger)

	res, err := service.Withdraw(context.Background(), account.ID, "30", reference)
	require.NoError(t, err)
	require.Equal(t, account, res.FromAccount)
}

func TestClose(t *testing.T) {
	t.Parallel()

	account := testAccount("100")
	closed := account
	closed.Status = domain.StatusClosed

	testCases := []struct {
		name          string
		buildStubs    func(repo *MockRepo)
		checkResponse func(res domain.Account, err error)
	}{
		{
			name: "Not found",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			checkResponse: func(res domain.Account, err error) {
				require.Empty(t, res)
				require.ErrorIs(t, err, domain.ErrAccountNotFound)
			},
		},
		{
			name: "Already closed",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(closed, nil)
				repo.EXPECT().SetStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(res domain.Account, err error) {
				require.Empty(t, res)
				require.ErrorIs(t, err, domain.ErrAccountNotClosable)
			},
		},
		{
			name: "OK",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
				repo.EXPECT().SetStatus(gomock.Any(), gomock.Eq(account.ID), gomock.Eq(domain.StatusClosed)).
					Times(1).
					Return(closed, nil)
			},
			checkResponse: func(res domain.Account, err error) {
				require.NoError(t, err)
				require.Equal(t, domain.StatusClosed, res.Status)
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
			tc.buildStubs(repo)

			service := New(repo, NewMockLedger(ctrl))

			tc.checkResponse(service.Close(context.Background(), account.ID))
		})
	}
}
