// Package contract defines the capability interfaces that decouple the auth
// and gateway layers from whether user and token storage is served by the
// local database or by a peer service over HTTP. Callers depend on these
// types only; the concrete backend is chosen once during process wiring.
package contract

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of privilege levels a user can hold.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleUser       Role = "USER"
)

// ParseRole maps a stored or transmitted role string onto the enum.
// Unknown values collapse to the lowest-privilege role.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleSuperAdmin):
		return RoleSuperAdmin
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleSupervisor):
		return RoleSupervisor
	default:
		return RoleUser
	}
}

func (r Role) String() string { return string(r) }

// CanAccessOrg reports whether a user with this role and organisation may
// touch entities belonging to target. SuperAdmin bypasses tenant scoping;
// every other role is confined to its own organisation.
func (r Role) CanAccessOrg(own *uuid.UUID, target uuid.UUID) bool {
	if r == RoleSuperAdmin {
		return true
	}
	return own != nil && *own == target
}

// User is the full identity record including the password hash. It never
// crosses the public API boundary; use Public for client responses.
type User struct {
	ID             uuid.UUID  `json:"id"`
	OrganisationID *uuid.UUID `json:"organisation_id,omitempty"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	PasswordHash   string     `json:"password_hash,omitempty"`
	Role           Role       `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserInfo is the public projection of a user, safe to return to clients.
type UserInfo struct {
	ID             uuid.UUID  `json:"id"`
	OrganisationID *uuid.UUID `json:"organisation_id,omitempty"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Role           Role       `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Public strips the password hash.
func (u *User) Public() UserInfo {
	return UserInfo{
		ID:             u.ID,
		OrganisationID: u.OrganisationID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// RefreshTokenInfo is what the store reveals about a persisted refresh
// token. The token hash itself stays inside the store.
type RefreshTokenInfo struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	OrganisationID *uuid.UUID `json:"organisation_id,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
}
