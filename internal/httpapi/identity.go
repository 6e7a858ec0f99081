package httpapi

import "net/http"

// Identity is the caller identity the auth collaborator is expected to
// have already validated before a request reaches this package: which
// tenant the caller belongs to, and whether they may act on another
// member's conversations.
type Identity struct {
	UserID          string
	Username        string
	OrgID           string
	IsAdmin         bool
	IsInstanceAdmin bool
}

// identityFromHeaders is a placeholder extraction for the caller identity
// the real auth collaborator (OIDC/OAuth2, session cookies, API keys) would
// attach to the request. Wiring that collaborator in is explicitly out of
// scope here; this reads the identity a reverse proxy or gateway would set
// after validating the caller, so the council API itself stays testable
// without standing up a full identity provider.
func identityFromHeaders(r *http.Request) (Identity, bool) {
	orgID := r.Header.Get("X-Org-Id")
	userID := r.Header.Get("X-User-Id")
	if orgID == "" || userID == "" {
		return Identity{}, false
	}
	return Identity{
		UserID:          userID,
		Username:        r.Header.Get("X-Username"),
		OrgID:           orgID,
		IsAdmin:         r.Header.Get("X-Is-Admin") == "true",
		IsInstanceAdmin: r.Header.Get("X-Is-Instance-Admin") == "true",
	}, true
}
