package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/garden-ai/garden-catalog/internal/domain/principal"
)

// Resolver maps a bearer token onto a principal.
type Resolver interface {
	Resolve(ctx context.Context, token string) (principal.Principal, error)
}

type principalKey struct{}

// ContextWithPrincipal stores the authenticated caller in the context.
func ContextWithPrincipal(ctx context.Context, p principal.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (principal.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal.Principal)
	return p, ok
}

// BearerAuthMiddleware resolves the Authorization header into a principal.
// Requests without the header pass through anonymously, reads are public.
// A header that is present but invalid is rejected with 401.
func BearerAuthMiddleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			p, err := resolver.Resolve(r.Context(), auth[len(bearerPrefix):])
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid bearer token")
				return
			}

			if info := requestInfoFrom(r.Context()); info != nil {
				info.principal = p.ID().String()
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}
