package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/topicrelay/topicrelay/internal/auth"
)

// subjectKey is the context key for the authenticated token subject.
type subjectKey struct{}

// Auth validates JWT bearer tokens. A nil verifier disables the check.
func Auth(verifier *auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeOutcome(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeOutcome(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if tokenString == "" {
				writeOutcome(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeOutcome(w, http.StatusUnauthorized, "access token has expired")
				default:
					writeOutcome(w, http.StatusUnauthorized, "invalid access token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject returns the authenticated token subject, or "".
func GetSubject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}
