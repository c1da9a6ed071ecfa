package share

import "errors"

var (
	// ErrTokenNotFound covers unknown, malformed and revoked tokens alike;
	// redemption never reveals whether a token ever existed.
	ErrTokenNotFound = errors.New("share token not found")
	// ErrTokenExpired marks a token past its expiration. Terminal; the
	// record may persist for audit but the token never validates again.
	ErrTokenExpired = errors.New("share token expired")
	// ErrInvalidDuration is returned for durations outside the allowed set.
	ErrInvalidDuration = errors.New("invalid share duration")
)
