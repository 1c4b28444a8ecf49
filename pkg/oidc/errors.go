package oidc

import "errors"

// Common errors
var (
	// ErrUnsupportedResponseType is returned when response_type is not "code"
	ErrUnsupportedResponseType = errors.New("unsupported response_type, only code is allowed")

	// ErrUnknownUser is returned when the selected login is not configured
	ErrUnknownUser = errors.New("unknown user")

	// ErrUnsupportedGrantType is returned for grant types other than
	// authorization_code and refresh_token
	ErrUnsupportedGrantType = errors.New("unsupported grant_type")
)
