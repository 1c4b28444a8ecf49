package oidc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()

	service := newTestService(t)
	handle, err := NewHandle(service, "")
	require.NoError(t, err)

	ts := httptest.NewServer(Routes(handle))
	t.Cleanup(ts.Close)
	return service, ts
}

// noRedirectClient returns the 302 responses instead of following them
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestHandle_Home(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestHandle_Authorize(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/authorize?response_type=code&client_id=c1&redirect_uri=http%3A%2F%2Flocalhost%2Fcb&scope=read&state=xyz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "bob")
	assert.Contains(t, body, "/authorize/complete?")
}

func TestHandle_Authorize_UnsupportedResponseType(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := noRedirectClient().Get(ts.URL + "/authorize?response_type=token&client_id=c1&redirect_uri=http%3A%2F%2Flocalhost%2Fcb&state=xyz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "unsupported_response_type", loc.Query().Get("error"))
	assert.Equal(t, "xyz", loc.Query().Get("state"))
}

func TestHandle_Authorize_MissingClientID(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/authorize?response_type=code&redirect_uri=http%3A%2F%2Flocalhost%2Fcb")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_CompleteAuthorization(t *testing.T) {
	service, ts := newTestServer(t)

	prompt, err := service.BeginAuthorization(context.Background(), AuthorizeRequest{
		ResponseType: ResponseTypeCode,
		ClientID:     "c1",
		RedirectURI:  "http://localhost/cb",
		State:        "xyz",
	})
	require.NoError(t, err)

	v := url.Values{}
	v.Set("grant_id", prompt.GrantID)
	v.Set("login", "alice")
	resp, err := noRedirectClient().Get(ts.URL + "/authorize/complete?" + v.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "http", loc.Scheme)
	assert.Equal(t, "localhost", loc.Host)
	assert.Equal(t, "/cb", loc.Path)
	assert.NotEmpty(t, loc.Query().Get("code"))
	assert.Equal(t, "xyz", loc.Query().Get("state"))
}

func TestHandle_CompleteAuthorization_UnknownUser(t *testing.T) {
	service, ts := newTestServer(t)

	prompt, err := service.BeginAuthorization(context.Background(), AuthorizeRequest{
		ResponseType: ResponseTypeCode,
		ClientID:     "c1",
		RedirectURI:  "http://localhost/cb",
	})
	require.NoError(t, err)

	v := url.Values{}
	v.Set("grant_id", prompt.GrantID)
	v.Set("login", "nobody")
	v.Set("redirect_uri", "http://localhost/cb")
	resp, err := noRedirectClient().Get(ts.URL + "/authorize/complete?" + v.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "access_denied", loc.Query().Get("error"))
}

func TestHandle_CompleteAuthorization_UnknownGrant(t *testing.T) {
	_, ts := newTestServer(t)

	v := url.Values{}
	v.Set("grant_id", "no-such-grant")
	v.Set("login", "alice")
	v.Set("redirect_uri", "http://localhost/cb")
	resp, err := noRedirectClient().Get(ts.URL + "/authorize/complete?" + v.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "invalid_request", loc.Query().Get("error"))
}

func TestHandle_CompleteAuthorization_NoUsableRedirect(t *testing.T) {
	_, ts := newTestServer(t)

	v := url.Values{}
	v.Set("grant_id", "no-such-grant")
	v.Set("login", "alice")
	resp, err := noRedirectClient().Get(ts.URL + "/authorize/complete?" + v.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_AccessToken_CodeExchange(t *testing.T) {
	service, ts := newTestServer(t)

	completed := authorizeUser(t, service, "alice", []string{"read", "write"})

	form := url.Values{}
	form.Set("grant_type", GrantTypeAuthorization)
	form.Set("code", completed.Code)
	form.Set("redirect_uri", "http://localhost/cb")
	form.Set("client_id", "c1")

	resp, err := http.PostForm(ts.URL+"/access_token", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var body AccessTokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.AccessToken)
	assert.NotEmpty(t, body.RefreshToken)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.Equal(t, "read write", body.Scope)
}

func TestHandle_AccessToken_RefreshExchange(t *testing.T) {
	service, ts := newTestServer(t)

	pair, err := service.tokens.Issue("alice", "c1", []string{"read"})
	require.NoError(t, err)

	form := url.Values{}
	form.Set("grant_type", GrantTypeRefreshToken)
	form.Set("refresh_token", pair.RefreshToken)
	form.Set("client_id", "c1")

	resp, err := http.PostForm(ts.URL+"/access_token", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body AccessTokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEqual(t, pair.AccessToken, body.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, body.RefreshToken)

	// The presented refresh token was consumed by the rotation
	resp2, err := http.PostForm(ts.URL+"/access_token", form)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestHandle_AccessToken_Errors(t *testing.T) {
	service, ts := newTestServer(t)

	postForm := func(t *testing.T, form url.Values) (int, ErrorResponse) {
		t.Helper()
		resp, err := http.PostForm(ts.URL+"/access_token", form)
		require.NoError(t, err)
		defer resp.Body.Close()

		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	t.Run("UnsupportedGrantType", func(t *testing.T) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")
		status, body := postForm(t, form)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "unsupported_grant_type", body.Error)
	})

	t.Run("InvalidCode", func(t *testing.T) {
		form := url.Values{}
		form.Set("grant_type", GrantTypeAuthorization)
		form.Set("code", "no-such-code")
		form.Set("redirect_uri", "http://localhost/cb")
		form.Set("client_id", "c1")
		status, body := postForm(t, form)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_grant", body.Error)
	})

	t.Run("RedirectMismatch", func(t *testing.T) {
		completed := authorizeUser(t, service, "alice", nil)

		form := url.Values{}
		form.Set("grant_type", GrantTypeAuthorization)
		form.Set("code", completed.Code)
		form.Set("redirect_uri", "http://evil.example/cb")
		form.Set("client_id", "c1")
		status, body := postForm(t, form)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_grant", body.Error)
		assert.Contains(t, body.ErrorDescription, "redirect_uri")
	})

	t.Run("InvalidRefreshToken", func(t *testing.T) {
		form := url.Values{}
		form.Set("grant_type", GrantTypeRefreshToken)
		form.Set("refresh_token", "no-such-token")
		form.Set("client_id", "c1")
		status, body := postForm(t, form)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "invalid_grant", body.Error)
	})
}

func TestHandle_UserInfo(t *testing.T) {
	service, ts := newTestServer(t)

	pair, err := service.tokens.Issue("alice", "c1", nil)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/user_info", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var claims map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&claims))
	assert.Equal(t, "alice@example.com", claims["email"])
	assert.Equal(t, "alice", claims["sub"])
}

func TestHandle_UserInfo_Errors(t *testing.T) {
	service, ts := newTestServer(t)

	get := func(t *testing.T, authorization string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/user_info", nil)
		require.NoError(t, err)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("MissingHeader", func(t *testing.T) {
		resp := get(t, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Require authorization header")
	})

	t.Run("WrongPrefix", func(t *testing.T) {
		pair, err := service.tokens.Issue("alice", "c1", nil)
		require.NoError(t, err)

		resp := get(t, "Token "+pair.AccessToken)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UnknownToken", func(t *testing.T) {
		resp := get(t, "Bearer no-such-token")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Invalid token")
	})
}

func TestHandle_UserInfo_CustomHeaderPrefix(t *testing.T) {
	service := newTestService(t)
	handle, err := NewHandle(service, "Token")
	require.NoError(t, err)

	ts := httptest.NewServer(Routes(handle))
	t.Cleanup(ts.Close)

	pair, err := service.tokens.Issue("alice", "c1", nil)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/user_info", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Token "+pair.AccessToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// authorizeUser runs the authorization steps directly against the service and
// returns the issued code, bound to client "c1" and http://localhost/cb.
func authorizeUser(t *testing.T, service *Service, login string, scope []string) CompletedAuthorization {
	t.Helper()

	prompt, err := service.BeginAuthorization(context.Background(), AuthorizeRequest{
		ResponseType: ResponseTypeCode,
		ClientID:     "c1",
		RedirectURI:  "http://localhost/cb",
		Scope:        scope,
	})
	require.NoError(t, err)

	completed, err := service.CompleteAuthorization(context.Background(), prompt.GrantID, login)
	require.NoError(t, err)
	return completed
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
