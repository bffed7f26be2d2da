// Package entrydelivery manages delivery layer of the transaction history.
package entrydelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vaultbank/ledger-engine/internal/domain"
	"github.com/vaultbank/ledger-engine/pkg/errorspkg"
	"github.com/vaultbank/ledger-engine/pkg/web"
)

// Service provides service layer interface needed by entry delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package entrydelivery
type Service interface {
	Get(ctx context.Context, id string) (domain.Entry, error)
	List(ctx context.Context, accountID string, from, to time.Time, pageSize, pageID int32) ([]domain.Entry, error)
}

// Handler facilitates entry delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns entry handler.
func NewHandler(es Service) *Handler {
	return &Handler{service: es}
}

type uriRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to get a single ledger entry.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	entry, err := h.service.Get(ctx, req.ID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"entry": entry}})
}

type listRequest struct {
	AccountID string `form:"account_id" binding:"required,uuid"`
	From      string `form:"from"` // RFC 3339, optional
	To        string `form:"to"`   // RFC 3339, optional
	PageSize  int32  `form:"page_size" binding:"required,min=1,max=100"`
	PageID    int32  `form:"page_id" binding:"required,min=1"`
}

// List handles http request to page through an account's history.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindingErrorMsg(err)})

		return
	}

	from, err := optionalTime(req.From)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: "date bounds must be RFC 3339"})

		return
	}

	to, err := optionalTime(req.To)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: "date bounds must be RFC 3339"})

		return
	}

	entries, err := h.service.List(ctx, req.AccountID, from, to, req.PageSize, req.PageID)
	if err != nil {
		respondError(gctx, l, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: gin.H{"entries": entries}})
}

func optionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339, s)
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

	switch {
	case errors.Is(err, domain.ErrEntryNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, errorspkg.ErrUnavailable):
		gctx.JSON(http.StatusServiceUnavailable, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}
