// Package identity resolves bearer tokens into principals.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/garden-ai/garden-catalog/internal/domain"
	"github.com/garden-ai/garden-catalog/internal/domain/principal"
)

// APIKey binds a static bearer key to an identity.
type APIKey struct {
	Key      string
	ID       uuid.UUID
	Username string
	Scopes   []string
}

// JWTConfig enables HS256 bearer tokens when Secret is non-empty.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Claims are the JWT claims read from bearer tokens.
type Claims struct {
	PreferredUsername string `json:"preferred_username"`
	Scope             string `json:"scope"`
	jwt.RegisteredClaims
}

// Resolver checks static API keys first, then JWTs.
type Resolver struct {
	keys   []APIKey
	secret []byte
	parser *jwt.Parser
}

// NewResolver creates a resolver. With no keys and no JWT secret every token is rejected.
func NewResolver(keys []APIKey, jwtCfg JWTConfig) *Resolver {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if jwtCfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtCfg.Issuer))
	}
	if jwtCfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(jwtCfg.Audience))
	}
	return &Resolver{
		keys:   keys,
		secret: []byte(jwtCfg.Secret),
		parser: jwt.NewParser(opts...),
	}
}

// Resolve maps a bearer token onto a principal. Unknown or invalid tokens
// fail with domain.ErrUnauthorized.
func (r *Resolver) Resolve(_ context.Context, token string) (principal.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return principal.Principal{}, fmt.Errorf("empty token: %w", domain.ErrUnauthorized)
	}

	for i := range r.keys {
		k := &r.keys[i]
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(token)) == 1 {
			return principal.New(k.ID, k.Username, k.Scopes), nil
		}
	}

	if len(r.secret) == 0 {
		return principal.Principal{}, fmt.Errorf("unknown api key: %w", domain.ErrUnauthorized)
	}
	return r.parseJWT(token)
}

func (r *Resolver) parseJWT(token string) (principal.Principal, error) {
	claims := &Claims{}
	parsed, err := r.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return principal.Principal{}, fmt.Errorf("invalid token: %w", errors.Join(domain.ErrUnauthorized, err))
	}
	if !parsed.Valid {
		return principal.Principal{}, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return principal.Principal{}, fmt.Errorf("token subject is not an identity id: %w", domain.ErrUnauthorized)
	}
	return principal.New(id, claims.PreferredUsername, strings.Fields(claims.Scope)), nil
}
