package authcode

import "errors"

// Common errors
var (
	// ErrCodeInvalid is returned when a code is unknown, already redeemed,
	// or was issued to a different client
	ErrCodeInvalid = errors.New("invalid authorization code")

	// ErrCodeExpired is returned when a code is presented after its expiry
	ErrCodeExpired = errors.New("authorization code expired")

	// ErrRedirectMismatch is returned when the redirect_uri presented at
	// redemption differs from the one captured at issuance
	ErrRedirectMismatch = errors.New("redirect_uri mismatch")
)
