// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/internal/transferservice"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
	"github.com/vaultbank/ledger-engine/pkg/web"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, arg transferservice.TransferParams) (domain.TransferResult, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{service: ts}
}

type request struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
	Description   string `json:"description"`
	Reference     string `json:"reference"`
}

// Create handles http request to create a transfer between two accounts.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg = err.Error()
		)

		if errors.As(err, &ve) {
			field := ve[0]
			errMsg = field.Field() + web.GetErrorMsg(field)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	arg := transferservice.TransferParams{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
		Reference:     req.Reference,
	}

	result, err := h.service.Transfer(ctx, arg)
	if err != nil {
		h.respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"transfer": result}})
}

func (h *Handler) respondError(gctx *gin.Context, l *zerolog.Logger, err error) {
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
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrCurrencyMismatch):
		gctx.JSON(http.StatusBadRequest, web.Error(err))

	case errors.As(err, &inactive):
		gctx.JSON(http.StatusUnprocessableEntity, web.Error(err))

	case errors.As(err, &insufficient):
		// Include the numbers so the UI can render an actionable message.
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
