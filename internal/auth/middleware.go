// Package auth guards the HTTP transport of the MCP server.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/sha1n/uuid-backfill/internal/config"
)

// APIKeyHeader carries the API key when auth type is apikey.
const APIKeyHeader = "X-API-Key"

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// checkFunc reports whether a request carries valid credentials.
type checkFunc func(r *http.Request) bool

// excludedPaths are paths that bypass authentication (e.g., health checks)
var excludedPaths = map[string]bool{
	"/health": true,
}

// NewMiddleware creates a new authentication middleware based on settings
func NewMiddleware(settings config.AuthSettings) (Middleware, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler { return next }, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return guard(checkBasic(settings.Basic), `Basic realm="uuid-backfill"`), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return guard(checkAPIKey(settings.APIKeys), ""), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

// guard rejects requests failing check with 401, except on excluded paths.
func guard(check checkFunc, challenge string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excludedPaths[r.URL.Path] || check(r) {
				next.ServeHTTP(w, r)
				return
			}
			if challenge != "" {
				w.Header().Set("WWW-Authenticate", challenge)
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

func checkBasic(settings config.BasicAuthSettings) checkFunc {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		userMatch := constantTimeEqual(user, settings.Username)
		passMatch := constantTimeEqual(pass, settings.Password)
		return ok && userMatch && passMatch
	}
}

// checkAPIKey accepts the key in the X-API-Key header or as a bearer token.
func checkAPIKey(apiKeys []string) checkFunc {
	return func(r *http.Request) bool {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				key = strings.TrimSpace(token)
			}
		}
		if key == "" {
			return false
		}

		valid := false
		for _, validKey := range apiKeys {
			// No early exit: every key is compared.
			if constantTimeEqual(key, validKey) {
				valid = true
			}
		}
		return valid
	}
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
