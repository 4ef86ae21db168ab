package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleSeller   Role = "Seller"
	RoleCustomer Role = "Customer"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleSeller, RoleCustomer:
		return Role(s), true
	}
	return "", false
}

// In returns true if the role is one of the allowed roles.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Actor is the resolved identity of the authenticated caller.
type Actor struct {
	ID   string
	Role Role
}
