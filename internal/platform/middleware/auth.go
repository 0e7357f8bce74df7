package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserResolver maps an API token to a user id. Empty id or an error means the
// token is not valid.
type UserResolver func(ctx context.Context, token string) (string, error)

// UserID returns the authenticated user id injected by BearerAuth, or "" for
// unauthenticated requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID is exposed for tests that need an authenticated context without
// the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// BearerAuth resolves the bearer token (or apikey header) to a user and puts
// the user id on the request context.
func BearerAuth(resolve UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := ""
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			} else {
				token = strings.TrimSpace(r.Header.Get("apikey"))
			}

			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			userID, err := resolve(r.Context(), token)
			if err != nil || userID == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
