package grant

import "errors"

// Common errors
var (
	// ErrGrantNotFound is returned when a grant is unknown, already resolved or expired
	ErrGrantNotFound = errors.New("grant not found")

	// ErrEmptyClientID is returned when an authorization request carries no client_id
	ErrEmptyClientID = errors.New("client_id is required and can't be empty")

	// ErrInvalidRedirectURI is returned when redirect_uri is not an absolute URI
	ErrInvalidRedirectURI = errors.New("redirect_uri must be an absolute URI")
)
