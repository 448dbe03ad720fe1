package domain

import "time"

// Role enumerates the closed set of user roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleContractor Role = "contractor"
)

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleContractor
}

// User is the domain model for operators of the system: admins who manage
// tickets and contractors who work them.
type User struct {
	ID               string
	Email            string
	Name             string
	Phone            string
	PasswordHash     string
	Role             Role
	Active           bool
	TwoFactorEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsStaff is derived from the role at read time; it is never stored.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin
}

// Actor is the authenticated identity performing an operation, as supplied by
// the identity provider. A zero Actor is unauthenticated and fails every
// authorization check.
type Actor struct {
	ID            string
	Role          Role
	Authenticated bool
}

// ActorFromUser builds an authenticated Actor for a user record.
func ActorFromUser(u *User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Role: u.Role, Authenticated: true}
}
