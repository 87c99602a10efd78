package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"task-tracker/auth"
	"task-tracker/models"
)

type contextKey string

const userKey contextKey = "user"

// TokenValidator resolves a bearer token to the caller it was issued to.
type TokenValidator interface {
	Validate(token string) (models.UserInfo, error)
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// never calls next for them.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "Missing token")
				return
			}

			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			user, err := tokens.Validate(tokenStr)
			if errors.Is(err, auth.ErrExpiredToken) {
				unauthorized(w, "Token expired")
				return
			}
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user models.UserInfo) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated caller stored by RequireAuth.
func GetUser(r *http.Request) (models.UserInfo, bool) {
	user, ok := r.Context().Value(userKey).(models.UserInfo)
	return user, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
