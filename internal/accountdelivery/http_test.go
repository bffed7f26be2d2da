package accountdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/currencypkg"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
	"github.com/vaultbank/ledger-engine/pkg/randompkg"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("currency", ValidCurrency); err != nil {
			fmt.Println("failed to register currency validator:", err)
			os.Exit(1)
		}
	}

	os.Exit(m.Run())
}

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

type eqCreateAccountParamsMatcher struct {
	arg domain.CreateAccountParams
}

func (e eqCreateAccountParamsMatcher) Matches(x interface{}) bool {
	arg, ok := x.(domain.CreateAccountParams)
	if !ok {
		return false
	}

	if !e.arg.InitialDeposit.Equal(arg.InitialDeposit) ||
		!e.arg.OverdraftLimit.Equal(arg.OverdraftLimit) ||
		!e.arg.DailyLimit.Equal(arg.DailyLimit) ||
		!e.arg.MonthlyLimit.Equal(arg.MonthlyLimit) {
		return false
	}

	e.arg.InitialDeposit = arg.InitialDeposit
	e.arg.OverdraftLimit = arg.OverdraftLimit
	e.arg.DailyLimit = arg.DailyLimit
	e.arg.MonthlyLimit = arg.MonthlyLimit

	return reflect.DeepEqual(e.arg, arg)
}

func (e eqCreateAccountParamsMatcher) String() string {
	return fmt.Sprintf("matches arg %v", e.arg)
}

func EqCreateAccountParams(arg domain.CreateAccountParams) gomock.Matcher {
	return eqCreateAccountParamsMatcher{arg}
}

func newServer(service Service) *gin.Engine {
	handler := NewHandler(service)

	server := gin.Default()
	server.POST("/accounts", handler.Open)
	server.GET("/accounts", handler.List)
	server.GET("/accounts/:id", handler.Get)
	server.GET("/accounts/:id/balance", handler.GetBalance)
	server.POST("/accounts/:id/close", handler.Close)
	server.POST("/accounts/:id/deposits", handler.Deposit)
	server.POST("/accounts/:id/withdrawals", handler.Withdraw)

	return server
}

func TestOpenAPI(t *testing.T) {
	account := testAccount("500")

	testCases := []struct {
		name          string
		requestBody   gin.H
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "MissingOwner",
			requestBody: gin.H{
				"type":     "checking",
				"currency": currencypkg.USD,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "UnknownType",
			requestBody: gin.H{
				"owner_id": account.OwnerID,
				"type":     "offshore",
				"currency": currencypkg.USD,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "UnsupportedCurrency",
			requestBody: gin.H{
				"owner_id": account.OwnerID,
				"type":     "checking",
				"currency": "XXX",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "InvalidInitialDeposit",
			requestBody: gin.H{
				"owner_id":        account.OwnerID,
				"type":            "checking",
				"currency":        currencypkg.USD,
				"initial_deposit": "abc",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Open(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "InternalError",
			requestBody: gin.H{
				"owner_id": account.OwnerID,
				"type":     "checking",
				"currency": currencypkg.USD,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().Open(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Account{}, errorspkg.ErrInternal)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusInternalServerError, recorder.Code)
			},
		},
		{
			name: "OK",
			requestBody: gin.H{
				"owner_id":        account.OwnerID,
				"type":            "checking",
				"currency":        currencypkg.USD,
				"initial_deposit": "500",
				"daily_limit":     "1000",
				"time_zone":       "America/New_York",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Open(gomock.Any(), EqCreateAccountParams(domain.CreateAccountParams{
						OwnerID:        account.OwnerID,
						Type:           domain.TypeChecking,
						Currency:       currencypkg.USD,
						InitialDeposit: decimal.RequireFromString("500"),
						DailyLimit:     decimal.RequireFromString("1000"),
						TimeZone:       "America/New_York",
					})).
					Times(1).
					Return(account, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)

				var resp struct {
					Data struct {
						Account domain.Account `json:"account"`
					} `json:"data"`
				}

				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
				require.Equal(t, account.ID, resp.Data.Account.ID)
				require.True(t, resp.Data.Account.Balance.Equal(account.Balance))
			},
		},
		{
			name: "OKWithLimits",
			requestBody: gin.H{
				"owner_id":        account.OwnerID,
				"type":            "savings",
				"currency":        currencypkg.USD,
				"overdraft_limit": "250.00",
				"monthly_limit":   "5000.0",
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Open(gomock.Any(), EqCreateAccountParams(domain.CreateAccountParams{
						OwnerID:        account.OwnerID,
						Type:           domain.TypeSavings,
						Currency:       currencypkg.USD,
						OverdraftLimit: decimal.RequireFromString("250"),
						MonthlyLimit:   decimal.RequireFromString("5000"),
					})).
					Times(1).
					Return(account, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)
			recorder := httptest.NewRecorder()

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}

func TestGetAPI(t *testing.T) {
	account := testAccount("100")

	testCases := []struct {
		name          string
		id            string
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "NonUUID",
			id:   "abc",
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "NotFound",
			id:   account.ID,
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusNotFound, recorder.Code)
			},
		},
		{
			name: "OK",
			id:   account.ID,
			buildStubs: func(service *MockService) {
				service.EXPECT().Get(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(account, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)
			recorder := httptest.NewRecorder()

			req, err := http.NewRequest(http.MethodGet, "/accounts/"+tc.id, nil)
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}

func TestGetBalanceAPI(t *testing.T) {
	account := testAccount("321.50")

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := NewMockService(ctrl)
	service.EXPECT().GetBalance(gomock.Any(), gomock.Eq(account.ID)).
		Times(1).
		Return(account.Balance, nil)

	server := newServer(service)
	recorder := httptest.NewRecorder()

	req, err := http.NewRequest(http.MethodGet, "/accounts/"+account.ID+"/balance", nil)
	require.NoError(t, err)

	server.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Data struct {
			Balance decimal.Decimal `json:"balance"`
		} `json:"data"`
	}

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Data.Balance.Equal(account.Balance))
}

func TestListAPI(t *testing.T) {
	owner := randompkg.Owner()
	accounts := []domain.Account{testAccount("100"), testAccount("200")}

	testCases := []struct {
		name          string
		query         string
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:  "MissingOwner",
			query: "?page_size=10&page_id=1",
			buildStubs: func(service *MockService) {
				service.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:  "PageSizeTooLarge",
			query: "?owner_id=" + owner + "&page_size=500&page_id=1",
			buildStubs: func(service *MockService) {
				service.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name:  "OK",
			query: "?owner_id=" + owner + "&page_size=10&page_id=1",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					List(gomock.Any(), gomock.Eq(owner), gomock.Eq(int32(10)), gomock.Eq(int32(1))).
					Times(1).
					Return(accounts, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)
			recorder := httptest.NewRecorder()

			req, err := http.NewRequest(http.MethodGet, "/accounts"+tc.query, nil)
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}

func TestCloseAPI(t *testing.T) {
	account := testAccount("0")
	closed := account
	closed.Status = domain.StatusClosed

	testCases := []struct {
		name          string
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "AlreadyClosed",
			buildStubs: func(service *MockService) {
				service.EXPECT().Close(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotClosable)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "OK",
			buildStubs: func(service *MockService) {
				service.EXPECT().Close(gomock.Any(), gomock.Eq(account.ID)).
					Times(1).
					Return(closed, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)
			recorder := httptest.NewRecorder()

			req, err := http.NewRequest(http.MethodPost, "/accounts/"+account.ID+"/close", nil)
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}

func TestDepositAPI(t *testing.T) {
	account := testAccount("100")
	reference := randompkg.Reference()

	testCases := []struct {
		name          string
		requestBody   gin.H
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name:        "MissingAmount",
			requestBody: gin.H{},
			buildStubs: func(service *MockService) {
				service.EXPECT().Deposit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusBadRequest, recorder.Code)
			},
		},
		{
			name: "OK",
			requestBody: gin.H{
				"amount":    "50",
				"reference": reference,
			},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Deposit(gomock.Any(), gomock.Eq(account.ID), gomock.Eq("50"), gomock.Eq(reference)).
					Times(1).
					Return(domain.TransferResult{ToAccount: account}, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)
			recorder := httptest.NewRecorder()

			body, err := json.Marshal(tc.requestBody)
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, "/accounts/"+account.ID+"/deposits", bytes.NewReader(body))
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}

func TestWithdrawAPI(t *testing.T) {
	account := testAccount("100")

	testCases := []struct {
		name          string
		buildStubs    func(service *MockService)
		checkResponse func(recorder *httptest.ResponseRecorder)
	}{
		{
			name: "InsufficientFunds",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Withdraw(gomock.Any(), gomock.Eq(account.ID), gomock.Eq("500"), gomock.Eq("")).
					Times(1).
					Return(domain.TransferResult{}, &domain.InsufficientFundsError{
						AccountID: account.ID,
						Available: decimal.RequireFromString("100"),
						Requested: decimal.RequireFromString("500"),
					})
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
			},
		},
		{
			name: "OK",
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Withdraw(gomock.Any(), gomock.Eq(account.ID), gomock.Eq("500"), gomock.Eq("")).
					Times(1).
					Return(domain.TransferResult{FromAccount: account}, nil)
			},
			checkResponse: func(recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(service)
			recorder := httptest.NewRecorder()

			body, err := json.Marshal(gin.H{"amount": "500"})
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, "/accounts/"+account.ID+"/withdrawals", bytes.NewReader(body))
			require.NoError(t, err)

			server.ServeHTTP(recorder, req)
			tc.checkResponse(recorder)
		})
	}
}
