package types

import "fmt"

// Role identifies the author of a chat turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AllRoles returns all valid chat roles
func AllRoles() []Role {
	return []Role{
		RoleUser,
		RoleAssistant,
	}
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleUser,
		RoleAssistant:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role. Anything other than user or assistant is rejected.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return role, nil
}
