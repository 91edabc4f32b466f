package gateway

import (
	"net/http"

	"github.com/andyeko/apisentinel/internal/token"
)

// Identity headers stamped on requests that pass authentication. Embedded
// handlers and proxied upstreams both consume these instead of re-decoding
// the token.
const (
	HeaderUserID       = "x-user-id"
	HeaderUserEmail    = "x-user-email"
	HeaderUserName     = "x-user-name"
	HeaderUserRole     = "x-user-role"
	HeaderOrganisation = "x-organisation-id"
	HeaderAuthMarker   = "x-auth"
	HeaderGateway      = "x-gateway"
	HeaderAPIKey       = "x-api-key"

	gatewayName = "apisentinel"
)

// Identity is the verified caller identity extracted from an access token.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
	OrgID  string
}

func identityFromClaims(claims *token.Claims) Identity {
	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
		OrgID:  claims.OrgID,
	}
}

// apply stamps the identity headers on the outbound request. Any stale
// client-supplied values are overwritten, never trusted.
func (id Identity) apply(h http.Header) {
	h.Set(HeaderUserID, id.UserID)
	h.Set(HeaderUserEmail, id.Email)
	h.Set(HeaderUserName, id.Name)
	h.Set(HeaderUserRole, id.Role)
	if id.OrgID != "" {
		h.Set(HeaderOrganisation, id.OrgID)
	} else {
		h.Del(HeaderOrganisation)
	}
	h.Set(HeaderAuthMarker, "ok")
}

// IdentityFromRequest reads the identity headers stamped by the gateway.
// Embedded handlers use this to enforce tenant scoping.
func IdentityFromRequest(r *http.Request) (Identity, bool) {
	id := Identity{
		UserID: r.Header.Get(HeaderUserID),
		Email:  r.Header.Get(HeaderUserEmail),
		Name:   r.Header.Get(HeaderUserName),
		Role:   r.Header.Get(HeaderUserRole),
		OrgID:  r.Header.Get(HeaderOrganisation),
	}
	if id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}
