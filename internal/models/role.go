package models

import "fmt"

// Role is an actor's position in the review hierarchy.
type Role string

// Roles ordered from least to most privileged.
const (
	RoleUser       Role = "user"
	RoleReviewer   Role = "reviewer"
	RoleSupervisor Role = "supervisor"
)

var roleRank = map[Role]int{
	RoleUser:       1,
	RoleReviewer:   2,
	RoleSupervisor: 3,
}

// Rank returns the role's position in the hierarchy, or 0 for unknown roles.
func (r Role) Rank() int { return roleRank[r] }

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.Rank() > 0 }

// AtLeast reports whether r is equal to or above other in the hierarchy.
// Unknown roles are never at least anything.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Rank() >= other.Rank()
}

// ParseRole converts s to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", &ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", s)}
	}

	return r, nil
}

// Actor is the authenticated identity performing an operation.
// The zero value represents an unauthenticated caller.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Authenticated reports whether the actor carries an identity and a known role.
func (a Actor) Authenticated() bool {
	return a.ID != "" && a.Role.Valid()
}
