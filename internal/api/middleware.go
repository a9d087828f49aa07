package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/tickstream/tickstream/internal/services"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// RequireAuth rejects requests without a valid bearer credential and
// stores the verified claims on the request context.
func RequireAuth(auth *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer credential")
				return
			}

			claims, err := auth.VerifyToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer credential")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the verified claims, or empty claims when
// the middleware did not run (tests, API-key mode).
func ClaimsFromContext(ctx context.Context) services.TokenClaims {
	if claims, ok := ctx.Value(claimsContextKey).(*services.TokenClaims); ok && claims != nil {
		return *claims
	}
	return services.TokenClaims{}
}
