// Package middleware provides the HTTP middleware chain (request id, auth, metrics, body limit).
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/devconnect/matchcore/internal/api/response"
)

// Auth validates the static API key from the Authorization header.
// Expected format: "Bearer <api-key>". The comparison is constant-time.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.RespondUnauthorized(w, "Missing Authorization header")

				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				response.RespondUnauthorized(w, "Invalid Authorization header format. Expected: Bearer <api-key>")

				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(apiKey)) != 1 {
				response.RespondUnauthorized(w, "Invalid API key")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
