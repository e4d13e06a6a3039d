// Package transferdelivery manages delivery layer of token transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"
	"github.com/go-petr/roundup-savings/pkg/web"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Status(ctx context.Context) (domain.TransferStatus, error)
	Retry(ctx context.Context, expenseID int64) error
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

// Status handles http request for wallet balances and transfer records.
func (h *Handler) Status(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	status, err := h.service.Status(ctx)
	if err != nil {
		l.Warn().Err(err).Send()

		if errors.Is(err, errorspkg.ErrUnavailable) {
			gctx.JSON(http.StatusServiceUnavailable, web.Error(errorspkg.ErrUnavailable))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, status)
}

type retryRequest struct {
	ExpenseID int64 `uri:"expense_id" binding:"required,min=1"`
}

type retryResponse struct {
	Success   bool  `json:"success"`
	ExpenseID int64 `json:"expenseId"`
}

// Retry handles http request to transfer the savings of a failed record again.
func (h *Handler) Retry(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req retryRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	err := h.service.Retry(ctx, req.ExpenseID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTransferRecordNotFound),
			errors.Is(err, domain.ErrExpenseNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(err))
		case errors.Is(err, domain.ErrTransferNotRetryable):
			gctx.JSON(http.StatusConflict, web.Error(err))
		case errors.Is(err, errorspkg.ErrUnavailable):
			gctx.JSON(http.StatusServiceUnavailable, web.Error(errorspkg.ErrUnavailable))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusAccepted, retryResponse{Success: true, ExpenseID: req.ExpenseID})
}
