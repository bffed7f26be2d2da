// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
	"github.com/vaultbank/ledger-engine/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Open(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
	GetBalance(ctx context.Context, id string) (decimal.Decimal, error)
	List(ctx context.Context, ownerID string, pageSize, pageID int32) ([]domain.Account, error)
	Close(ctx context.Context, id string) (domain.Account, error)
	Deposit(ctx context.Context, accountID, amount, reference string) (domain.TransferResult, error)
	Withdraw(ctx context.Context, accountID, amount, reference string) (domain.TransferResult, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{service: as}
}

type openRequest struct {
	OwnerID        string `json:"owner_id" binding:"required"`
	Type           string `json:"type" binding:"required,oneof=checking savings business"`
	Currency       string `json:"currency" binding:"required,currency"`
	InitialDeposit string `json:"initial_deposit"`
	OverdraftLimit string `json:"overdraft_limit"`
	DailyLimit     string `json:"daily_limit"`
	MonthlyLimit   string `json:"monthly_limit"`
	TimeZone       string `json:"time_zone"`
}

// Open handles http request to open an account.
func (h *Handler) Open(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req openRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	arg := domain.CreateAccountParams{
		OwnerID:  req.OwnerID,
		Type:     domain.AccountType(req.Type),
		Currency: req.Currency,
		TimeZone: req.TimeZone,
	}

	var err error
	if arg.InitialDeposit, err = optionalAmount(req.InitialDeposit); err == nil {
		if arg.OverdraftLimit, err = optionalAmount(req.OverdraftLimit); err == nil {
			if arg.DailyLimit, err = optionalAmount(req.DailyLimit); err == nil {
				arg.MonthlyLimit, err = optionalAmount(req.MonthlyLimit)
			}
		}
	}

	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	account, err := h.service.Open(ctx, arg)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"account": account}})
}

type uriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to get an account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	account, err := h.service.Get(ctx, req.ID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"account": account}})
}

// GetBalance handles http request to read the latest committed balance.
func (h *Handler) GetBalance(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	balance, err := h.service.GetBalance(ctx, req.ID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"balance": balance}})
}

type listRequest struct {
	OwnerID  string `form:"owner_id" binding:"required"`
	PageSize int32  `form:"page_size" binding:"required,min=1,max=100"`
	PageID   int32  `form:"page_id" binding:"required,min=1"`
}

// List handles http request to list an owner's accounts.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	accounts, err := h.service.List(ctx, req.OwnerID, req.PageSize, req.PageID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"accounts": accounts}})
}

// Close handles http request to close an account.
func (h *Handler) Close(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	account, err := h.service.Close(ctx, req.ID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"account": account}})
}

type movementRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference"`
}

// Deposit handles http request to credit an account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.move(gctx, h.service.Deposit)
}

// Withdraw handles http request to debit an account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.move(gctx, h.service.Withdraw)
}

func (h *Handler) move(gctx *gin.Context, op func(ctx context.Context, accountID, amount, reference string) (domain.TransferResult, error)) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	var req movementRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	result, err := op(ctx, uri.ID, req.Amount, req.Reference)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"result": result}})
}

func optionalAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	return d, nil
}

func bindingErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return err.Error()
}

func respondError(gctx *gin.Context, l *zerolog.Logger, err error) {
	l.Info().Err(err).Send()

	var (
		inactive     *domain.AccountInactiveError
		insufficient *domain.InsufficientFundsError
		limit        *domain.LimitExceededError
	)

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNonPositiveAmount),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrAccountNotClosable):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case errors.As(err, &inactive):
		gctx.JSON(http.StatusUnprocessableEntity, web.Error(err))
	case errors.As(err, &insufficient):
		gctx.JSON(http.StatusUnprocessableEntity, web.Response{
			Error: err.Error(),
			Data: gin.H{
				"available": insufficient.Available,
				"requested": insufficient.Requested,
			},
		})
	case errors.As(err, &limit):
		gctx.JSON(http.StatusUnprocessableEntity, web.Response{
			Error: err.Error(),
			Data: gin.H{
				"window":    limit.Window,
				"limit":     limit.Limit,
				"spent":     limit.Spent,
				"remaining": limit.Remaining(),
			},
		})
	case errors.Is(err, domain.ErrConflict):
		gctx.JSON(http.StatusConflict, web.Error(err))
	case errors.Is(err, errorspkg.ErrUnavailable):
		gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}
