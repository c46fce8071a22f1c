package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "trattoria/internal/errors"
)

const SessionCookie = "session"

type ctxKey struct{}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the claims of the signed-in caller, if any.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// tokenFromRequest reads a Bearer header first, then the session cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// OptionalUser attaches claims when a valid token is present and lets the
// request through either way.
func OptionalUser(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := tokenFromRequest(r); raw != "" {
				if claims, err := tokens.Parse(raw); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects requests without a valid token for role.
func RequireRole(tokens *TokenIssuer, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				apperrors.Write(w, apperrors.ErrUnauthorized("Authentication required"))
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				apperrors.Write(w, apperrors.ErrUnauthorized("Session expired, please sign in again"))
				return
			}
			if claims.Role != role {
				apperrors.Write(w, apperrors.ErrForbidden("You do not have access to this resource"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func RequireUser(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return RequireRole(tokens, RoleCustomer)
}

func AdminAuthMiddleware(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return RequireRole(tokens, RoleAdmin)
}
