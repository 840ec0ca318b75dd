package domain

import "time"

// Role is the coarse permission level of an account.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleViewer    Role = "viewer"
)

// ParseRole returns the role named s, or false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleModerator, RoleViewer:
		return r, true
	}
	return "", false
}

func (r Role) IsAdmin() bool            { return r == RoleAdmin }
func (r Role) IsModeratorOrAdmin() bool { return r == RoleAdmin || r == RoleModerator }
func (r Role) CanManageUsers() bool     { return r.IsModeratorOrAdmin() }
func (r Role) CanDeleteUsers() bool     { return r.IsAdmin() }

// RoleAssignment maps an email address to a role.
type RoleAssignment struct {
	Email     string    `json:"email" dynamodbav:"email"`
	RoleID    string    `json:"id" dynamodbav:"role_id"`
	Role      Role      `json:"role" dynamodbav:"role"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type RoleAssignmentInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin moderator viewer"`
}
