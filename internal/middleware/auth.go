package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenVerifier turns a raw bearer token into the user id it was issued to
type TokenVerifier interface {
	VerifyAccessToken(token string) (int64, error)
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondUnauthorized(w, r, "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondUnauthorized(w, r, "Invalid authorization header format")
				return
			}

			userID, err := verifier.VerifyAccessToken(parts[1])
			if err != nil {
				respondUnauthorized(w, r, "Invalid token")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

func respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{
		"error": message,
		"kind":  "AUTH_FAILURE",
	})
}
