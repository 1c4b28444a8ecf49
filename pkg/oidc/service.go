package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/tendant/oauth2-mock/pkg/authcode"
	"github.com/tendant/oauth2-mock/pkg/grant"
	"github.com/tendant/oauth2-mock/pkg/token"
	"github.com/tendant/oauth2-mock/pkg/userdir"
)

// Supported response and grant types
const (
	ResponseTypeCode       = "code"
	GrantTypeAuthorization = "authorization_code"
	GrantTypeRefreshToken  = "refresh_token"
)

// AuthorizeRequest carries the parameters of an authorization request
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        []string
	State        string
}

// AuthorizePrompt is returned by BeginAuthorization for the selection page:
// the pending grant plus the identities the caller may pick from.
type AuthorizePrompt struct {
	GrantID string
	Users   []userdir.User
}

// CompletedAuthorization carries the issued code plus the original request
// parameters the HTTP layer needs to construct the redirect.
type CompletedAuthorization struct {
	Code        string
	RedirectURI string
	State       string
}

// TokenRequest carries the parameters of a token request
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	ClientID     string
	RefreshToken string
}

// Service orchestrates the authorization flow across the user directory and
// the grant, code and token registries. Registries are constructed once at
// startup and passed in; the service owns no state of its own.
type Service struct {
	users  *userdir.Directory
	grants *grant.Registry
	codes  *authcode.Registry
	tokens *token.Registry
}

// NewService creates the authorization service
func NewService(users *userdir.Directory, grants *grant.Registry, codes *authcode.Registry, tokens *token.Registry) *Service {
	return &Service{
		users:  users,
		grants: grants,
		codes:  codes,
		tokens: tokens,
	}
}

// BeginAuthorization validates the request shape, stores a pending grant and
// returns the selection prompt.
func (s *Service) BeginAuthorization(ctx context.Context, req AuthorizeRequest) (AuthorizePrompt, error) {
	if req.ResponseType != ResponseTypeCode {
		return AuthorizePrompt{}, ErrUnsupportedResponseType
	}

	grantID, err := s.grants.Create(req.ClientID, req.RedirectURI, req.Scope, req.State)
	if err != nil {
		return AuthorizePrompt{}, err
	}

	return AuthorizePrompt{
		GrantID: grantID,
		Users:   s.users.ListAll(),
	}, nil
}

// CompleteAuthorization binds the chosen user to the grant and mints a code.
// The login is checked before the grant is consumed, so an unknown selection
// leaves the grant pending and the caller may select again.
func (s *Service) CompleteAuthorization(ctx context.Context, grantID, login string) (CompletedAuthorization, error) {
	if _, err := s.users.Lookup(login); err != nil {
		if errors.Is(err, userdir.ErrUserNotFound) {
			return CompletedAuthorization{}, fmt.Errorf("%w: %s", ErrUnknownUser, login)
		}
		return CompletedAuthorization{}, err
	}

	g, err := s.grants.Resolve(grantID)
	if err != nil {
		return CompletedAuthorization{}, err
	}

	code, err := s.codes.Issue(login, g.ClientID, g.RedirectURI, g.Scope)
	if err != nil {
		return CompletedAuthorization{}, fmt.Errorf("failed to issue authorization code: %w", err)
	}

	return CompletedAuthorization{
		Code:        code.Code,
		RedirectURI: g.RedirectURI,
		State:       g.State,
	}, nil
}

// ExchangeToken dispatches a token request on its grant type: a code exchange
// mints a fresh pair, a refresh exchange rotates the presented token.
func (s *Service) ExchangeToken(ctx context.Context, req TokenRequest) (token.Pair, error) {
	switch req.GrantType {
	case GrantTypeAuthorization:
		code, err := s.codes.Redeem(req.Code, req.ClientID, req.RedirectURI)
		if err != nil {
			return token.Pair{}, err
		}
		pair, err := s.tokens.Issue(code.Login, code.ClientID, code.Scope)
		if err != nil {
			return token.Pair{}, fmt.Errorf("failed to issue token pair: %w", err)
		}
		return pair, nil

	case GrantTypeRefreshToken:
		return s.tokens.Rotate(req.RefreshToken, req.ClientID)

	default:
		return token.Pair{}, fmt.Errorf("%w: %q", ErrUnsupportedGrantType, req.GrantType)
	}
}

// ResolveUserInfo returns the claim set configured for the login bound to the
// access token. Claims are copied verbatim; the only touch-up is merging a
// "sub" claim (set to the login) when the configuration does not provide one.
func (s *Service) ResolveUserInfo(ctx context.Context, accessToken string) (map[string]interface{}, error) {
	login, _, err := s.tokens.ResolveAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Lookup(login)
	if err != nil {
		return nil, fmt.Errorf("token bound to unconfigured login %s: %w", login, err)
	}

	claims := make(map[string]interface{}, len(user.UserInfo)+1)
	for k, v := range user.UserInfo {
		claims[k] = v
	}
	if _, ok := claims["sub"]; !ok {
		claims["sub"] = user.Login
	}

	return claims, nil
}

// AccessTokenTTL exposes the access-token lifetime for the expires_in field
func (s *Service) AccessTokenTTL() int {
	return int(s.tokens.AccessTTL().Seconds())
}

// BuildCallbackURL constructs the redirect back to the client with the code
func (s *Service) BuildCallbackURL(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// BuildErrorRedirectURL constructs a redirect back to the client with an
// OAuth2 error code
func (s *Service) BuildErrorRedirectURL(redirectURI, errorCode, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}

	q := u.Query()
	q.Set("error", errorCode)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()

	return u.String()
}
