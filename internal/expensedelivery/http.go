// Package expensedelivery manages delivery layer of expenses.
package expensedelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"
	"github.com/go-petr/roundup-savings/pkg/web"
)

// Service provides ledger interface needed by expense delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package expensedelivery
type Service interface {
	SubmitExpense(ctx context.Context, reason string, amount any) (domain.SubmissionResult, error)
	List() []domain.Transaction
	TotalSavings() decimal.Decimal
	View() domain.View
}

// Handler facilitates expense delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns expense handler.
func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

type createRequest struct {
	Reason string `json:"reason"`
	Amount any    `json:"amount" binding:"required"`
}

type createResponse struct {
	Success bool `json:"success"`
	domain.SubmissionResult
}

// Create handles http request to submit an expense.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	result, err := h.service.SubmitExpense(ctx, req.Reason, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			l.Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, createResponse{Success: true, SubmissionResult: result})
}

type listResponse struct {
	Expenses     []domain.Transaction `json:"expenses"`
	TotalSavings decimal.Decimal      `json:"totalSavings"`
}

// List handles http request to list the ledger newest first.
func (h *Handler) List(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, listResponse{
		Expenses:     h.service.List(),
		TotalSavings: h.service.TotalSavings(),
	})
}

// View handles http request for the display listing with recomputed savings rows.
func (h *Handler) View(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, h.service.View())
}
