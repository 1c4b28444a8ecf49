package token

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultAccessTTL is how long an access token stays resolvable
const DefaultAccessTTL = time.Hour

// Pair is an access/refresh token pair bound to one user and scope.
// Tokens are opaque random identifiers; there is no signing.
type Pair struct {
	AccessToken     string
	RefreshToken    string
	Login           string
	ClientID        string
	Scope           []string
	AccessExpiresAt time.Time
	RefreshIssuedAt time.Time
}

// Registry holds issued token pairs in memory.
//
// Access tokens expire by time; refresh tokens never expire by time but are
// invalidated by rotation. Both maps point at the same pair, so rotation can
// kill an access token that has not yet expired.
type Registry struct {
	mu        sync.Mutex
	access    map[string]*Pair
	refresh   map[string]*Pair
	accessTTL time.Duration
}

// NewRegistry creates a token registry. A non-positive ttl falls back to DefaultAccessTTL.
func NewRegistry(accessTTL time.Duration) *Registry {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	return &Registry{
		access:    make(map[string]*Pair),
		refresh:   make(map[string]*Pair),
		accessTTL: accessTTL,
	}
}

// Issue mints a fresh token pair for the given login and scope
func (r *Registry) Issue(login, clientID string, scope []string) (Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issueLocked(login, clientID, scope)
}

func (r *Registry) issueLocked(login, clientID string, scope []string) (Pair, error) {
	accessToken, err := generateOpaqueToken()
	if err != nil {
		return Pair{}, err
	}
	refreshToken, err := generateOpaqueToken()
	if err != nil {
		return Pair{}, err
	}

	now := time.Now().UTC()
	p := &Pair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		Login:           login,
		ClientID:        clientID,
		Scope:           append([]string(nil), scope...),
		AccessExpiresAt: now.Add(r.accessTTL),
		RefreshIssuedAt: now,
	}

	r.access[accessToken] = p
	r.refresh[refreshToken] = p

	return *p, nil
}

// ResolveAccess looks up the identity and scope bound to an access token.
// An expired entry is purged lazily; its refresh token stays rotatable.
func (r *Registry) ResolveAccess(accessToken string) (string, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.access[accessToken]
	if !ok {
		return "", nil, ErrTokenInvalid
	}

	if time.Now().UTC().After(p.AccessExpiresAt) {
		delete(r.access, accessToken)
		return "", nil, ErrTokenExpired
	}

	return p.Login, append([]string(nil), p.Scope...), nil
}

// Rotate exchanges a refresh token for a fresh pair carrying the same login
// and scope. The old pair is deleted in the same critical section: the old
// access token becomes unresolvable immediately, even if unexpired, and a
// concurrent rotation of the same refresh token loses with ErrTokenInvalid.
//
// Mock policy: clientID is accepted but not cross-validated.
func (r *Registry) Rotate(refreshToken, clientID string) (Pair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.refresh[refreshToken]
	if !ok {
		return Pair{}, ErrTokenInvalid
	}

	delete(r.refresh, refreshToken)
	delete(r.access, old.AccessToken)

	return r.issueLocked(old.Login, old.ClientID, old.Scope)
}

// Sweep drops expired access-token entries and returns how many were purged.
// Refresh tokens are untouched; they only die by rotation.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	purged := 0
	for accessToken, p := range r.access {
		if now.After(p.AccessExpiresAt) {
			delete(r.access, accessToken)
			purged++
		}
	}
	return purged
}

// AccessTTL returns the configured access-token lifetime
func (r *Registry) AccessTTL() time.Duration {
	return r.accessTTL
}

// generateOpaqueToken returns a 256-bit random value encoded as hex
func generateOpaqueToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
