package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SecretMiddleware guards operational endpoints with a single shared secret,
// presented either as a Bearer token or in the X-Cron-Secret header. This is
// the cron trigger's guard, not end-user auth; user auth lives in the
// excluded CRUD layer.
type SecretMiddleware struct {
	secret string
}

// NewSecretMiddleware creates a SecretMiddleware. An empty secret rejects
// every request, so a deployment cannot accidentally expose the trigger.
func NewSecretMiddleware(secret string) *SecretMiddleware {
	return &SecretMiddleware{secret: secret}
}

// Protect rejects requests that do not present the shared secret.
func (m *SecretMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get("X-Cron-Secret")
		if presented == "" {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				presented = parts[1]
			}
		}

		if m.secret == "" || presented == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(m.secret)) != 1 {
			http.Error(w, "invalid or missing secret", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
