package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// bearerAuth returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
func bearerAuth(token string, onReject func(http.ResponseWriter)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				onReject(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
