package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
	"github.com/meesalavenugopal/novacare247/internal/http/render"
)

type contextKey string

const claimsKey contextKey = "authClaims"

// RequireRoles admits requests bearing a valid HS256 token whose role is one
// of roles. The claims are stored on the request context.
func RequireRoles(secret string, roles ...accounts.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				render.Error(w, http.StatusUnauthorized, "unauthorized", "authentication is not configured")
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				render.Error(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			claims, err := accounts.ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				render.Error(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			if _, ok := claims.UserID(); !ok {
				render.Error(w, http.StatusUnauthorized, "unauthorized", "invalid token subject")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
				render.Error(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalClaims attaches claims when a valid bearer token is present and
// otherwise passes the request through untouched.
func OptionalClaims(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if secret == "" || !strings.HasPrefix(auth, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := accounts.ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := claims.UserID(); !ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, claims *accounts.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the authenticated caller's claims if present.
func ClaimsFromContext(ctx context.Context) (*accounts.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*accounts.Claims)
	return claims, ok && claims != nil
}
