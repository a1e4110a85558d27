package models

// Admin roles. RoleAll is a broadcast target on notifications, never an identity role.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleEventAdmin = "EVENT_ADMIN"
	RoleDeskAdmin  = "DESK_ADMIN"
	RoleTeamHead   = "TEAM_HEAD"
	RoleAll        = "ALL"
)

// Identity is the typed capability extracted from a verified session: who the caller
// is, what role they hold, and which event/sector scope that role is bound to. It is
// built once by the auth middleware and carried through the request context.
type Identity struct {
	UserID       string
	Role         string
	EventScope   string
	SectorScopes []string
}

// ValidRole reports whether r is a known admin role.
func ValidRole(r string) bool {
	switch r {
	case RoleSuperAdmin, RoleEventAdmin, RoleDeskAdmin, RoleTeamHead:
		return true
	}
	return false
}

// HasAnyRole reports whether the identity holds one of the given roles.
func (id Identity) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}
