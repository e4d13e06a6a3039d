// Package tokenpkg issues and verifies operator access tokens.
package tokenpkg

import "time"

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific operator and duration.
	CreateToken(operator string, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// Kinds of supported token makers.
const (
	KindPaseto = "paseto"
	KindJWT    = "jwt"
)

// New returns the maker of the given kind.
func New(kind, secretKey string) (Maker, error) {
	if kind == KindJWT {
		return NewJWTMaker(secretKey)
	}

	return NewPasetoMaker(secretKey)
}
