package auth

import (
	"context"
	"net/http"

	"github.com/sakif/snipvault/internal/repository"
)

// contextKey is unexported so only this package can write the user id into
// a context.
type contextKey string

const userIDKey contextKey = "userID"

// CookieName is the session cookie holding the JWT. HttpOnly keeps it out
// of reach of page scripts.
const CookieName = "token"

// RequireAuth validates the session cookie and rejects the request with
// 401 when it is missing or invalid. On success the user id is stored in
// the request context and the repository owner scope is attached, so every
// store call below this point is row-scoped to the authenticated user.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the user identity when a valid token is present but
// never blocks the request. Handlers detect anonymous requests through
// UserIDFromContext returning ("", false).
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				r = r.WithContext(withUser(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext is the collaborator call the services build on:
// "current owner id or none".
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func withUser(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return repository.WithOwner(ctx, userID)
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
