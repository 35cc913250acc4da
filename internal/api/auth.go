package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// BearerAuth requires "Authorization: Bearer <token>". An empty token means
// the secret is not configured and every request is refused with 500.
// name appears in the rejection message ("invalid API key").
func BearerAuth(token, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				httpError(w, http.StatusUnauthorized, "authentication_error", "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid authorization format, use: Bearer <token>")
				return
			}
			if token == "" {
				slog.Error("bearer secret is not configured", "secret", name, "path", r.URL.Path)
				httpError(w, http.StatusInternalServerError, "server_error", "server configuration error")
				return
			}
			if subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid %s", name)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
