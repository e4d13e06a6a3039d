// Package venuedelivery manages delivery layer of lending venue selection.
package venuedelivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"
	"github.com/go-petr/roundup-savings/pkg/roundpkg"
	"github.com/go-petr/roundup-savings/pkg/web"
)

// Service provides service layer interface needed by venue delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package venuedelivery
type Service interface {
	Current() domain.Recommendation
	BuildTxs(venue domain.Venue, amount decimal.Decimal, onBehalfOf string) ([]domain.UnsignedTx, error)
}

// Handler facilitates venue delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns venue handler.
func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

// Get handles http request for the current venue pick.
func (h *Handler) Get(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, h.service.Current())
}

type txsRequest struct {
	Amount     any    `json:"amount" binding:"required"`
	OnBehalfOf string `json:"onBehalfOf" binding:"required,evmaddress"`
	Platform   string `json:"platform" binding:"omitempty,oneof=aave morpho"`
}

// BuildTxs handles http request for unsigned approve and supply transactions.
func (h *Handler) BuildTxs(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req txsRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	amount, ok := roundpkg.Parse(req.Amount)
	if !ok || !amount.IsPositive() {
		l.Info().Err(domain.ErrInvalidAmount).Interface("amount", req.Amount).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))

		return
	}

	txs, err := h.service.BuildTxs(domain.Venue(req.Platform), amount, req.OnBehalfOf)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInvalidVenue) {
			l.Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, txs)
}
