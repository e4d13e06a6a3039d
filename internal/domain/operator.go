package domain

import "errors"

var (
	// ErrWrongPassword indicates the wrong operator password.
	ErrWrongPassword = errors.New("wrong password")
	// ErrOperatorAuthDisabled indicates that no operator credentials are configured.
	ErrOperatorAuthDisabled = errors.New("operator login is disabled")
)
