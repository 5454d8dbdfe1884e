package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"swipe-match-backend/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateJWT(token string) (services.TokenClaims, error)
}

// AuthMiddleware creates a middleware for JWT authentication
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateJWT(parts[1])
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly rejects requests whose token was not issued to the admin.
// It must run after AuthMiddleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetClaims(r.Context()).IsAdmin() {
			respondError(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClaims extracts token claims from context
func GetClaims(ctx context.Context) services.TokenClaims {
	claims, _ := ctx.Value(claimsKey).(services.TokenClaims)
	return claims
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return GetClaims(ctx).UserID
}

// WithClaims returns ctx carrying claims, as AuthMiddleware would
func WithClaims(ctx context.Context, claims services.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
