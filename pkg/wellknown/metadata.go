// Package wellknown serves OAuth 2.0 and OpenID Connect discovery documents.
//
// The metadata is static configuration data: it describes the mock server's
// endpoints and supported grant types so that client libraries can discover
// them, but it carries no engine state. Tokens are opaque, so no jwks_uri is
// advertised.
package wellknown

// AuthorizationServerMetadata is the RFC 8414 authorization server metadata
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
}

// OpenIDConfiguration is the OpenID Connect Discovery 1.0 document. For this
// mock it is the server metadata plus the subject type field OIDC requires.
type OpenIDConfiguration struct {
	AuthorizationServerMetadata
	SubjectTypesSupported []string `json:"subject_types_supported"`
}

// Config holds the static values the discovery documents are built from
type Config struct {
	// BaseURL is the externally visible base URL of this server
	BaseURL string

	// Scopes advertised in scopes_supported
	Scopes []string
}

// NewAuthorizationServerMetadata builds the RFC 8414 document
func NewAuthorizationServerMetadata(config Config) AuthorizationServerMetadata {
	return AuthorizationServerMetadata{
		Issuer:                config.BaseURL,
		AuthorizationEndpoint: config.BaseURL + "/authorize",
		TokenEndpoint:         config.BaseURL + "/access_token",
		UserinfoEndpoint:      config.BaseURL + "/user_info",
		ScopesSupported:       config.Scopes,
		ResponseTypesSupported: []string{
			"code",
		},
		GrantTypesSupported: []string{
			"authorization_code",
			"refresh_token",
		},
		// Mock policy: no client secrets are validated
		TokenEndpointAuthMethodsSupported: []string{"none"},
	}
}

// NewOpenIDConfiguration builds the OIDC discovery document
func NewOpenIDConfiguration(config Config) OpenIDConfiguration {
	return OpenIDConfiguration{
		AuthorizationServerMetadata: NewAuthorizationServerMetadata(config),
		SubjectTypesSupported:       []string{"public"},
	}
}
