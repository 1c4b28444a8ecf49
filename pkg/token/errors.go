package token

import "errors"

// Common errors
var (
	// ErrTokenInvalid is returned when a token is unknown or was invalidated
	// by a refresh rotation
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired is returned when an access token is presented after its expiry
	ErrTokenExpired = errors.New("token expired")
)
