package authcode

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultTTL is how long an issued code stays redeemable
const DefaultTTL = 10 * time.Minute

// AuthorizationCode is a short-lived, single-use credential bound to a user
// selection and the request parameters captured at issuance.
type AuthorizationCode struct {
	Code        string
	Login       string
	ClientID    string
	RedirectURI string
	Scope       []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Registry holds issued authorization codes in memory.
type Registry struct {
	mu    sync.Mutex
	codes map[string]AuthorizationCode
	ttl   time.Duration
}

// NewRegistry creates a code registry. A non-positive ttl falls back to DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		codes: make(map[string]AuthorizationCode),
		ttl:   ttl,
	}
}

// Issue mints a new single-use code for the given login
func (r *Registry) Issue(login, clientID, redirectURI string, scope []string) (AuthorizationCode, error) {
	code, err := generateOpaqueToken()
	if err != nil {
		return AuthorizationCode{}, err
	}

	now := time.Now().UTC()
	c := AuthorizationCode{
		Code:        code,
		Login:       login,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scope:       append([]string(nil), scope...),
		IssuedAt:    now,
		ExpiresAt:   now.Add(r.ttl),
	}

	r.mu.Lock()
	r.codes[code] = c
	r.mu.Unlock()

	return c, nil
}

// Redeem atomically checks and removes the code. The check and the removal
// happen under one lock so that of N concurrent redeemers exactly one wins;
// the rest observe ErrCodeInvalid.
//
// The presented redirect_uri must exactly match the one captured at issuance.
// A mismatch is reported as ErrRedirectMismatch and leaves the code in place,
// so a redemption with the correct redirect_uri can still succeed.
func (r *Registry) Redeem(code, clientID, redirectURI string) (AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[code]
	if !ok {
		return AuthorizationCode{}, ErrCodeInvalid
	}

	if time.Now().UTC().After(c.ExpiresAt) {
		delete(r.codes, code)
		return AuthorizationCode{}, ErrCodeExpired
	}

	// Mock policy: the client_id is matched against the issuing request but
	// not validated against any client registry.
	if c.ClientID != clientID {
		return AuthorizationCode{}, ErrCodeInvalid
	}

	if c.RedirectURI != redirectURI {
		return AuthorizationCode{}, ErrRedirectMismatch
	}

	delete(r.codes, code)
	return c, nil
}

// Sweep removes expired, unredeemed codes and returns how many were purged
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	purged := 0
	for code, c := range r.codes {
		if now.After(c.ExpiresAt) {
			delete(r.codes, code)
			purged++
		}
	}
	return purged
}

// Len returns the number of outstanding codes
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}

// generateOpaqueToken returns a 256-bit random value encoded as hex
func generateOpaqueToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
