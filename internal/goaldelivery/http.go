// Package goaldelivery manages delivery layer of savings goals.
package goaldelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
	"github.com/vaultbank/ledger-engine/pkg/web"
)

// Service provides service layer interface needed by goal delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package goaldelivery
type Service interface {
	Create(ctx context.Context, arg domain.CreateGoalParams) (domain.Goal, error)
	Get(ctx context.Context, id string) (domain.Goal, error)
	ListByOwner(ctx context.Context, ownerID string, pageSize, pageID int32) ([]domain.Goal, error)
	Contribute(ctx context.Context, goalID, fromAccountID, amount, reference string) (domain.TransferResult, error)
	Cancel(ctx context.Context, id string) (domain.Goal, error)
}

// Handler facilitates goal delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns goal handler.
func NewHandler(gs Service) *Handler {
	return &Handler{service: gs}
}

type createRequest struct {
	AccountID    string `json:"account_id" binding:"required,uuid"`
	OwnerID      string `json:"owner_id" binding:"required"`
	Name         string `json:"name" binding:"required"`
	TargetAmount string `json:"target_amount" binding:"required"`
	Deadline     string `json:"deadline"` // RFC 3339, optional
}

// Create handles http request to create a savings goal.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))
		return
	}

	var deadline time.Time
	if req.Deadline != "" {
		if deadline, err = time.Parse(time.RFC3339, req.Deadline); err != nil {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: "deadline must be RFC 3339"})
			return
		}
	}

	goal, err := h.service.Create(ctx, domain.CreateGoalParams{
		AccountID:    req.AccountID,
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		TargetAmount: target,
		Deadline:     deadline,
	})
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"goal": goal}})
}

type uriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to get a goal.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	goal, err := h.service.Get(ctx, req.ID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"goal": goal}})
}

type listRequest struct {
	OwnerID  string `form:"owner_id" binding:"required"`
	PageSize int32  `form:"page_size" binding:"required,min=1,max=100"`
	PageID   int32  `form:"page_id" binding:"required,min=1"`
}

// List handles http request to list an owner's goals.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	goals, err := h.service.ListByOwner(ctx, req.OwnerID, req.PageSize, req.PageID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"goals": goals}})
}

type contributeRequest struct {
	FromAccountID string `json:"from_account_id" binding:"omitempty,uuid"`
	Amount        string `json:"amount" binding:"required"`
	Reference     string `json:"reference"`
}

// Contribute handles http request to contribute to a goal.
func (h *Handler) Contribute(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	var req contributeRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	result, err := h.service.Contribute(ctx, uri.ID, req.FromAccountID, req.Amount, req.Reference)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"contribution": result}})
}

// Cancel handles http request to cancel a goal.
func (h *Handler) Cancel(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	goal, err := h.service.Cancel(ctx, req.ID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"goal": goal}})
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
		overfund     *domain.GoalOverfundError
		insufficient *domain.InsufficientFundsError
	)

	switch {
	case errors.Is(err, domain.ErrGoalNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))

	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNonPositiveAmount),
		errors.Is(err, domain.ErrGoalNotActive):
		gctx.JSON(http.StatusBadRequest, web.Error(err))

	case errors.As(err, &overfund):
		gctx.JSON(http.StatusUnprocessableEntity, web.Response{
			Error: err.Error(),
			Data: gin.H{
				"target":    overfund.Target,
				"current":   overfund.Current,
				"remaining": overfund.Remaining(),
			},
		})

	case errors.As(err, &insufficient):
		gctx.JSON(http.StatusUnprocessableEntity, web.Response{
			Error: err.Error(),
			Data: gin.H{
				"available": insufficient.Available,
				"requested": insufficient.Requested,
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
