package httpapi

import (
	"net/http"
	"strings"

	"github.com/roach88/kitchensync/internal/config"
)

// Auth gates routes by the role of the caller's bearer token.
//
// Tokens are read from "Authorization: Bearer <token>" or, for WebSocket
// clients that cannot set headers, the "token" query parameter. With no
// tokens configured every request is allowed.
type Auth struct {
	tokens map[string]config.Role
}

// NewAuth creates an auth gate over a token to role map.
func NewAuth(tokens map[string]config.Role) *Auth {
	copied := make(map[string]config.Role, len(tokens))
	for token, role := range tokens {
		copied[token] = role
	}
	return &Auth{tokens: copied}
}

// Enabled reports whether any token is configured.
func (a *Auth) Enabled() bool {
	return len(a.tokens) > 0
}

// Require wraps next so only callers holding one of roles reach it.
// With no roles, any authenticated caller is allowed.
func (a *Auth) Require(next http.Handler, roles ...config.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		role, ok := a.tokens[bearerToken(r)]
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="kitchensync"`)
			WriteJSONError(w, http.StatusUnauthorized, "unauthorized", "missing or unknown token")
			return
		}
		if !allowed(role, roles) {
			WriteJSONError(w, http.StatusForbidden, "forbidden", "role "+string(role)+" may not call this route")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowed(role config.Role, roles []config.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
