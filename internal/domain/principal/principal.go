package principal

import (
	"slices"

	"github.com/google/uuid"
)

// ScopeDefault is required for every mutation.
const ScopeDefault = "default"

// Principal is an authenticated caller.
type Principal struct {
	id       uuid.UUID
	username string
	scopes   []string
}

// New creates a principal.
func New(id uuid.UUID, username string, scopes []string) Principal {
	return Principal{id: id, username: username, scopes: slices.Clone(scopes)}
}

// ID returns the identity id.
func (p Principal) ID() uuid.UUID { return p.id }

// Username returns the display username.
func (p Principal) Username() string { return p.username }

// Scopes returns the granted scopes.
func (p Principal) Scopes() []string { return p.scopes }

// HasScope reports whether the scope was granted.
func (p Principal) HasScope(scope string) bool { return slices.Contains(p.scopes, scope) }

// URN is the identity reference used for index visibility.
func (p Principal) URN() string { return IdentityURN(p.id) }

// IdentityURN formats an identity id for index visibility lists.
func IdentityURN(id uuid.UUID) string { return "urn:globus:auth:identity:" + id.String() }
