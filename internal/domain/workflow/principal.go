package workflow

import (
	"fmt"
	"strings"
)

// Role is a capability tag carried by a principal
type Role string

const (
	RoleEditor      Role = "EDITOR"
	RoleAdminEditor Role = "ADMIN_EDITOR"
	RoleAdmin       Role = "ADMIN"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleEditor, RoleAdminEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole accepts "admin-editor", "ADMIN_EDITOR" and similar spellings.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Principal is an acting identity. Ownership is not a role; it is derived by
// comparing ID against a workflow's owner.
type Principal struct {
	ID    string
	Roles []Role
}

// NewPrincipal creates a principal with the given roles
func NewPrincipal(id string, roles ...Role) Principal {
	return Principal{ID: id, Roles: append([]Role(nil), roles...)}
}

// HasRole reports whether the principal carries the role
func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// is reports whether the principal's id equals id. An empty id never matches.
func (p Principal) is(id string) bool {
	return id != "" && p.ID == id
}
