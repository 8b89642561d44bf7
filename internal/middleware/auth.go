package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"erpsaas/internal/model"
	"erpsaas/internal/util"

	"github.com/rs/zerolog"
)

// Injected key type to avoid context collisions
type contextKey string

const (
	UserContextKey   = contextKey("user")
	ClaimsContextKey = contextKey("claims")
)

// AuthMiddleware admits requests carrying a valid bearer token whose role
// claim is admin.
func AuthMiddleware(jwtSecret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("middleware", "auth").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn().Str("path", r.URL.Path).Msg("Authorization header missing")
				unauthorized(w, http.StatusUnauthorized, "Authorization header missing")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				log.Warn().Str("path", r.URL.Path).Msg("Invalid authorization header")
				unauthorized(w, http.StatusUnauthorized, "Invalid authorization header")
				return
			}
			claims, err := util.ValidateJWT(strings.TrimSpace(parts[1]), jwtSecret)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Invalid token")
				unauthorized(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if claims.Role != model.RoleAdmin {
				log.Warn().Str("subject", claims.Subject).Str("role", claims.Role).Msg("Admin role required")
				unauthorized(w, http.StatusForbidden, "Admin role required")
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, claims.Subject)
			ctx = context.WithValue(ctx, ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
