package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/thumbr/service/internal/config"
	"github.com/thumbr/service/internal/response"
)

// RequireAuth returns middleware that guards the thumbnail routes with the
// credential scheme selected in configuration.
//
// In "apikey" mode the X-API-Key header must exactly match the configured key.
// In "bearer" mode the Authorization header must carry a well-formed JWT; the
// token is format-validated only, its signature is not checked against any
// stored value.
func RequireAuth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AuthScheme == config.AuthSchemeBearer {
				if !checkBearer(w, r) {
					return
				}
			} else {
				if !checkAPIKey(w, r, cfg.APIKey) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkAPIKey(w http.ResponseWriter, r *http.Request, want string) bool {
	got := r.Header.Get("X-API-Key")
	if got == "" {
		response.Unauthorized(w, "missing X-API-Key header")
		return false
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		response.Unauthorized(w, "invalid API key")
		return false
	}
	return true
}

func checkBearer(w http.ResponseWriter, r *http.Request) bool {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		response.Unauthorized(w, "missing authorization header")
		return false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		response.Unauthorized(w, "invalid authorization header format")
		return false
	}

	// Format check only: the token must parse as a JWT, signature unverified.
	if _, _, err := jwt.NewParser().ParseUnverified(parts[1], jwt.MapClaims{}); err != nil {
		response.Unauthorized(w, "malformed bearer token")
		return false
	}
	return true
}
