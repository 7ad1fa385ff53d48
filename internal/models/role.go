package models

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleInvestor Role = "investor"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleBuyer, RoleInvestor, RoleAgent, RoleAdmin}

// ParseRole converts a stored or submitted value into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleBuyer, RoleInvestor, RoleAgent, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// SelfAssignable reports whether a role may be picked at sign-up.
func (r Role) SelfAssignable() bool {
	switch r {
	case RoleBuyer, RoleInvestor, RoleAgent:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
