package grant

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a grant may wait for user selection before it expires
const DefaultTTL = 10 * time.Minute

// PendingGrant is an authorization request awaiting user selection
type PendingGrant struct {
	GrantID     string
	ClientID    string
	RedirectURI string
	Scope       []string
	State       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Registry holds pending authorization grants in memory.
// Grants are single use: Resolve removes the grant it returns.
type Registry struct {
	mu     sync.Mutex
	grants map[string]PendingGrant
	ttl    time.Duration
}

// NewRegistry creates a grant registry. A non-positive ttl falls back to DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		grants: make(map[string]PendingGrant),
		ttl:    ttl,
	}
}

// Create validates the request parameters and stores a new pending grant.
// Any non-empty client_id is accepted; there is no client registry.
func (r *Registry) Create(clientID, redirectURI string, scope []string, state string) (string, error) {
	if clientID == "" {
		return "", ErrEmptyClientID
	}

	u, err := url.Parse(redirectURI)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidRedirectURI, redirectURI)
	}

	now := time.Now().UTC()
	g := PendingGrant{
		GrantID:     uuid.New().String(),
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scope:       append([]string(nil), scope...),
		State:       state,
		CreatedAt:   now,
		ExpiresAt:   now.Add(r.ttl),
	}

	r.mu.Lock()
	r.grants[g.GrantID] = g
	r.mu.Unlock()

	return g.GrantID, nil
}

// Resolve removes and returns the grant. An unknown, already-resolved or
// expired grant is reported uniformly as ErrGrantNotFound.
func (r *Registry) Resolve(grantID string) (PendingGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.grants[grantID]
	if !ok {
		return PendingGrant{}, ErrGrantNotFound
	}

	delete(r.grants, grantID)

	if time.Now().UTC().After(g.ExpiresAt) {
		return PendingGrant{}, ErrGrantNotFound
	}

	return g, nil
}

// Sweep removes expired grants and returns how many were purged
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	purged := 0
	for id, g := range r.grants {
		if now.After(g.ExpiresAt) {
			delete(r.grants, id)
			purged++
		}
	}
	return purged
}

// Len returns the number of pending grants
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.grants)
}
