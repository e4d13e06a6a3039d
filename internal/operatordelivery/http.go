// Package operatordelivery manages delivery layer of operator login.
package operatordelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"
	"github.com/go-petr/roundup-savings/pkg/web"
)

// Service provides service layer interface needed by operator delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package operatordelivery
type Service interface {
	Login(ctx context.Context, password string) (string, time.Time, error)
}

// Handler facilitates operator delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns operator handler.
func NewHandler(s Service) *Handler {
	return &Handler{service: s}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login handles http login request and returns an access token.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	accessToken, expiresAt, err := h.service.Login(ctx, req.Password)
	if err != nil {
		l.Info().Err(err).Send()

		switch {
		case errors.Is(err, domain.ErrWrongPassword):
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
		case errors.Is(err, domain.ErrOperatorAuthDisabled):
			gctx.JSON(http.StatusNotFound, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusOK, web.Response{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
