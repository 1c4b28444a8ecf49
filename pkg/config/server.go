package config

import (
	"strings"
	"time"
)

// ServerConfig contains the mock server settings, populated from environment
// variables (cleanenv tags). Durations use Go duration syntax, e.g. "10m".
type ServerConfig struct {
	Port    int    `env:"PORT" env-default:"3000"`
	BaseURL string `env:"BASE_URL" env-default:"http://localhost:3000"`

	// UsersFile is the JSON file with the selectable identities
	UsersFile string `env:"USERS_FILE" env-default:"config/users.json"`

	// Lifetimes of the single-use and time-limited credentials
	GrantExpiry       string `env:"GRANT_EXPIRY" env-default:"10m"`
	CodeExpiry        string `env:"CODE_EXPIRY" env-default:"10m"`
	AccessTokenExpiry string `env:"ACCESS_TOKEN_EXPIRY" env-default:"1h"`

	// SweepInterval is how often expired grants, codes and access tokens
	// are purged in the background
	SweepInterval string `env:"SWEEP_INTERVAL" env-default:"1m"`

	// AuthorizationHeaderPrefix is the scheme expected on userinfo requests
	AuthorizationHeaderPrefix string `env:"AUTHORIZATION_HEADER_PREFIX" env-default:"Bearer"`

	// ScopesSupported is the space-delimited scope list advertised by discovery
	ScopesSupported string `env:"SCOPES_SUPPORTED" env-default:"openid profile email"`
}

// ParseGrantExpiry parses the GrantExpiry field as a time.Duration
func (c *ServerConfig) ParseGrantExpiry() (time.Duration, error) {
	return time.ParseDuration(c.GrantExpiry)
}

// ParseCodeExpiry parses the CodeExpiry field as a time.Duration
func (c *ServerConfig) ParseCodeExpiry() (time.Duration, error) {
	return time.ParseDuration(c.CodeExpiry)
}

// ParseAccessTokenExpiry parses the AccessTokenExpiry field as a time.Duration
func (c *ServerConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return time.ParseDuration(c.AccessTokenExpiry)
}

// ParseSweepInterval parses the SweepInterval field as a time.Duration
func (c *ServerConfig) ParseSweepInterval() (time.Duration, error) {
	return time.ParseDuration(c.SweepInterval)
}

// Scopes returns the advertised scopes as a list
func (c *ServerConfig) Scopes() []string {
	return strings.Fields(c.ScopesSupported)
}
