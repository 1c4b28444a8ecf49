package oidc

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/tendant/oauth2-mock/pkg/authcode"
	"github.com/tendant/oauth2-mock/pkg/grant"
	"github.com/tendant/oauth2-mock/pkg/token"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DefaultAuthorizationHeaderPrefix is the scheme expected on userinfo requests
const DefaultAuthorizationHeaderPrefix = "Bearer"

// AccessTokenResponse is the token endpoint success body
type AccessTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}

// ErrorResponse is an OAuth2 error body
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Handle exposes the authorization flow over HTTP
type Handle struct {
	service      *Service
	templates    *template.Template
	headerPrefix string
}

// NewHandle creates the HTTP handle. An empty authHeaderPrefix falls back to
// DefaultAuthorizationHeaderPrefix.
func NewHandle(service *Service, authHeaderPrefix string) (*Handle, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded templates: %w", err)
	}

	if authHeaderPrefix == "" {
		authHeaderPrefix = DefaultAuthorizationHeaderPrefix
	}

	return &Handle{
		service:      service,
		templates:    templates,
		headerPrefix: authHeaderPrefix,
	}, nil
}

// Routes returns the router for the OAuth2 endpoints
func Routes(h *Handle) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Get("/authorize", h.Authorize)
	r.Get("/authorize/complete", h.CompleteAuthorization)
	r.Post("/access_token", h.AccessToken)
	r.Get("/user_info", h.UserInfo)
	return r
}

// selectionEntry is one selectable identity on the authorization page
type selectionEntry struct {
	Login       string
	Description string
	CompleteURL string
}

// selectionPage is the data for the selection template
type selectionPage struct {
	ClientID string
	Users    []selectionEntry
}

// Home renders a landing page listing the configured identities
func (h *Handle) Home(w http.ResponseWriter, r *http.Request) {
	data := selectionPage{}
	for _, u := range h.service.users.ListAll() {
		data.Users = append(data.Users, selectionEntry{Login: u.Login, Description: u.Description})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		slog.Error("Failed to render home page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Authorize implements the OAuth2 authorization endpoint: it stores a pending
// grant and renders the user selection page bound to it.
func (h *Handle) Authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := AuthorizeRequest{
		ResponseType: q.Get("response_type"),
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		Scope:        splitScope(q.Get("scope")),
		State:        q.Get("state"),
	}

	slog.Info("Authorization request received",
		"client_id", req.ClientID,
		"redirect_uri", req.RedirectURI,
		"response_type", req.ResponseType,
		"scope", req.Scope,
		"state", req.State)

	prompt, err := h.service.BeginAuthorization(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedResponseType):
			slog.Warn("Unsupported response_type", "response_type", req.ResponseType)
			h.redirectError(w, r, req.RedirectURI, "unsupported_response_type", req.State)
		case errors.Is(err, grant.ErrEmptyClientID), errors.Is(err, grant.ErrInvalidRedirectURI):
			slog.Warn("Invalid authorization request", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("Failed to begin authorization", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	data := selectionPage{ClientID: req.ClientID}
	for _, u := range prompt.Users {
		v := url.Values{}
		v.Set("grant_id", prompt.GrantID)
		v.Set("login", u.Login)
		// Carried along so error outcomes can still redirect back to the client
		v.Set("redirect_uri", req.RedirectURI)
		v.Set("state", req.State)

		data.Users = append(data.Users, selectionEntry{
			Login:       u.Login,
			Description: u.Description,
			CompleteURL: "/authorize/complete?" + v.Encode(),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "selection.html", data); err != nil {
		slog.Error("Failed to render selection page", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// CompleteAuthorization binds the chosen user to the grant and redirects back
// to the client with the authorization code.
func (h *Handle) CompleteAuthorization(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	grantID := q.Get("grant_id")
	login := q.Get("login")
	redirectURI := q.Get("redirect_uri")
	state := q.Get("state")

	slog.Info("Authorization completion requested", "grant_id", grantID, "login", login)

	res, err := h.service.CompleteAuthorization(r.Context(), grantID, login)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownUser):
			slog.Warn("Unknown user selected", "login", login)
			h.redirectError(w, r, redirectURI, "access_denied", state)
		case errors.Is(err, grant.ErrGrantNotFound):
			slog.Warn("Grant not found or expired", "grant_id", grantID)
			h.redirectError(w, r, redirectURI, "invalid_request", state)
		default:
			slog.Error("Failed to complete authorization", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	callbackURL, err := h.service.BuildCallbackURL(res.RedirectURI, res.Code, res.State)
	if err != nil {
		slog.Error("Failed to build callback URL", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	slog.Info("Authorization successful, redirecting to client", "login", login)
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

// AccessToken implements the OAuth2 token endpoint
func (h *Handle) AccessToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse form data", "error", err)
		h.writeTokenError(w, r, "invalid_request", "failed to parse form data")
		return
	}

	req := TokenRequest{
		GrantType:    r.FormValue("grant_type"),
		Code:         r.FormValue("code"),
		RedirectURI:  r.FormValue("redirect_uri"),
		ClientID:     r.FormValue("client_id"),
		RefreshToken: r.FormValue("refresh_token"),
	}

	slog.Info("Token request received", "grant_type", req.GrantType, "client_id", req.ClientID)

	pair, err := h.service.ExchangeToken(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedGrantType):
			h.writeTokenError(w, r, "unsupported_grant_type", "only authorization_code and refresh_token are supported")
		case errors.Is(err, authcode.ErrCodeInvalid):
			h.writeTokenError(w, r, "invalid_grant", "authorization code is invalid or already used")
		case errors.Is(err, authcode.ErrCodeExpired):
			h.writeTokenError(w, r, "invalid_grant", "authorization code expired")
		case errors.Is(err, authcode.ErrRedirectMismatch):
			h.writeTokenError(w, r, "invalid_grant", "redirect_uri does not match the authorization request")
		case errors.Is(err, token.ErrTokenInvalid):
			h.writeTokenError(w, r, "invalid_grant", "refresh token is invalid or was already rotated")
		default:
			slog.Error("Token exchange failed", "error", err)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, ErrorResponse{Error: "server_error"})
		}
		return
	}

	response := AccessTokenResponse{}
	copier.Copy(&response, &pair)
	response.TokenType = "bearer"
	response.ExpiresIn = h.service.AccessTokenTTL()
	response.Scope = strings.Join(pair.Scope, " ")

	slog.Info("Token exchange successful", "login", pair.Login, "client_id", pair.ClientID, "scope", response.Scope)

	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, response)
}

// UserInfo resolves the bearer token and returns the configured claims
func (h *Handle) UserInfo(w http.ResponseWriter, r *http.Request) {
	prefix := h.headerPrefix + " "

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Require authorization header", http.StatusBadRequest)
		return
	}

	if !strings.HasPrefix(authHeader, prefix) {
		msg := fmt.Sprintf("Authorization header must start with %q", prefix)
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	accessToken := authHeader[len(prefix):]

	claims, err := h.service.ResolveUserInfo(r.Context(), accessToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenInvalid) || errors.Is(err, token.ErrTokenExpired) {
			slog.Info("Userinfo request with unusable token", "error", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		slog.Error("Failed to resolve userinfo", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, claims)
}

// redirectError sends the caller back to the client with an OAuth2 error
// code, or answers 400 directly when no usable redirect_uri is available.
func (h *Handle) redirectError(w http.ResponseWriter, r *http.Request, redirectURI, errorCode, state string) {
	u, err := url.Parse(redirectURI)
	if redirectURI == "" || err != nil || !u.IsAbs() {
		http.Error(w, errorCode, http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, h.service.BuildErrorRedirectURL(redirectURI, errorCode, state), http.StatusFound)
}

func (h *Handle) writeTokenError(w http.ResponseWriter, r *http.Request, errorCode, description string) {
	slog.Info("Token request rejected", "error", errorCode, "description", description)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: errorCode, ErrorDescription: description})
}

// splitScope parses the space-delimited scope parameter preserving order
func splitScope(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}
