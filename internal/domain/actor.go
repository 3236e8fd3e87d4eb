package domain

import (
	"fmt"
	"strings"
)

// Role is the canonical role set. Legacy spellings are folded in ParseRole.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOfficer  Role = "officer"
	RoleCustomer Role = "customer"
)

var roleAliases = map[string]Role{
	"admin":    RoleAdmin,
	"officer":  RoleOfficer,
	"petugas":  RoleOfficer,
	"staff":    RoleOfficer,
	"customer": RoleCustomer,
}

// ParseRole normalises a role string, unknown roles are an error.
func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleOfficer
}

// Actor is the authenticated caller: either a staff user or a customer.
type Actor struct {
	ID   int64
	Role Role
}

func StaffActor(id int64, role Role) Actor {
	return Actor{ID: id, Role: role}
}

func CustomerActor(id int64) Actor {
	return Actor{ID: id, Role: RoleCustomer}
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsCustomer() bool {
	return a.Role == RoleCustomer
}

// CanAccessCustomer reports whether the actor may read or change data owned
// by the given customer.
func (a Actor) CanAccessCustomer(customerID int64) bool {
	if a.IsStaff() {
		return true
	}
	return a.IsCustomer() && a.ID == customerID
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
