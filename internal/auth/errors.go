package auth

import "errors"

var (
	// ErrUnauthorized represents missing or invalid bearer tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrResetTokenInvalid covers unknown, expired and already-used reset tokens.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
)
