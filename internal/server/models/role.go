package models

import (
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
)

// Role orders users for minimum-role authorization.
type Role string

const (
	RoleUser    Role = "user"
	RoleProUser Role = "pro_user"
	RoleAdmin   Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:    1,
	RoleProUser: 2,
	RoleAdmin:   3,
}

// Rank returns the position of r in the hierarchy, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRank[r]
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// ParseRole validates s as a role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: role %q", common.ErrorInvalidArgument, s)
	}
	return r, nil
}

// Roles lists every role from lowest to highest.
func Roles() []Role {
	return []Role{RoleUser, RoleProUser, RoleAdmin}
}
