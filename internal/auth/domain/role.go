package domain

import (
	"fmt"
	"strings"
)

// Role is the authority granted to an account. Roles form a simple
// hierarchy: ADMIN implies USER.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// rank orders roles for Implies. Unknown roles rank below everything.
var rank = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// ParseRole accepts USER or ADMIN in any case, with or without a ROLE_
// prefix.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_"))
	if _, ok := rank[r]; !ok {
		return "", fmt.Errorf("domain: unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// Implies reports whether holding r grants want.
func (r Role) Implies(want Role) bool {
	have, ok := rank[r]
	if !ok {
		return false
	}
	need, ok := rank[want]
	return ok && have >= need
}

func (r Role) String() string { return string(r) }
