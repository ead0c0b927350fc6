package auth

import "strings"

// Role is a closed enumeration of operator roles
type Role string

const (
	// RoleField can create bales on the field
	RoleField Role = "field"
	// RoleTransport can move bales from field to yard
	RoleTransport Role = "transport"
	// RoleProcessing can mark yarded bales as processed
	RoleProcessing Role = "processing"
	// RoleManager has elevated access across all transitions
	RoleManager Role = "manager"
	// RoleSuperadmin bypasses every role check
	RoleSuperadmin Role = "superadmin"
)

// RoleFromString converts a string to a Role
func RoleFromString(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "field":
		return RoleField
	case "transport":
		return RoleTransport
	case "processing":
		return RoleProcessing
	case "manager":
		return RoleManager
	case "superadmin":
		return RoleSuperadmin
	default:
		return ""
	}
}

// Elevated reports whether a role bypasses per-transition checks
func (r Role) Elevated() bool {
	return r == RoleManager || r == RoleSuperadmin
}

// Actor is the caller identity supplied by the external authenticator.
// The core trusts it unconditionally.
type Actor struct {
	ID    string
	Roles []Role
}

// HasRole reports whether the actor carries the given role
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authorized reports whether an actor's role set satisfies the required
// role. An elevated role satisfies any requirement.
func Authorized(required Role, roles []Role) bool {
	for _, r := range roles {
		if r.Elevated() || r == required {
			return true
		}
	}
	return false
}

// ParseRoles converts a comma separated role list to a role set,
// dropping unknown entries
func ParseRoles(raw string) []Role {
	var roles []Role
	for _, part := range strings.Split(raw, ",") {
		if role := RoleFromString(part); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
