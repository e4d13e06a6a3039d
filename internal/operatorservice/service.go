// Package operatorservice manages business logic layer of operator login.
package operatorservice

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/pkg/errorspkg"
	"github.com/go-petr/roundup-savings/pkg/passpkg"
	"github.com/go-petr/roundup-savings/pkg/tokenpkg"
)

// Operator is the subject of every issued token.
const Operator = "operator"

// Service facilitates operator login logic.
type Service struct {
	passwordHash string
	tokenMaker   tokenpkg.Maker
	duration     time.Duration
}

// New returns operator service. A nil maker or an empty hash disables login.
func New(passwordHash string, tokenMaker tokenpkg.Maker, duration time.Duration) *Service {
	return &Service{
		passwordHash: passwordHash,
		tokenMaker:   tokenMaker,
		duration:     duration,
	}
}

// Login checks the operator password and issues an access token.
func (s *Service) Login(ctx context.Context, password string) (string, time.Time, error) {
	l := zerolog.Ctx(ctx)

	if s.passwordHash == "" || s.tokenMaker == nil {
		return "", time.Time{}, domain.ErrOperatorAuthDisabled
	}

	if err := passpkg.Check(password, s.passwordHash); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", time.Time{}, domain.ErrWrongPassword
		}

		l.Error().Err(err).Msg("check operator password")

		return "", time.Time{}, errorspkg.ErrInternal
	}

	token, payload, err := s.tokenMaker.CreateToken(Operator, s.duration)
	if err != nil {
		l.Error().Err(err).Msg("create access token")
		return "", time.Time{}, errorspkg.ErrInternal
	}

	return token, payload.ExpiredAt, nil
}
