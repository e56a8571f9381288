package auth

import (
	"net/http"
	"strings"
)

// CookieName is the cookie the web client stores its token in.
const CookieName = "access_token"

// TokenFromRequest returns the bearer token, falling back to the access
// cookie. Browsers cannot set headers on WebSocket upgrades, so allowQuery
// additionally accepts ?token=.
func TokenFromRequest(r *http.Request, allowQuery bool) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}
