package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the role carried in a session token
type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleDispatcher UserRole = "dispatcher"
	UserRoleTechnician UserRole = "technician"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleDispatcher, UserRoleTechnician:
		return true
	}
	return false
}

// JWTClaims represents the JWT claims issued by the auth service
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	Role         UserRole `json:"role"`
	TechnicianID string   `json:"technician_id,omitempty"`

	jwt.RegisteredClaims
}

// Actor identifies who performs a job action
type Actor struct {
	UserID       string
	Role         UserRole
	TechnicianID string
}

// IsPrivileged reports whether the actor may override technician-only checks
func (a Actor) IsPrivileged() bool {
	return a.Role == UserRoleAdmin || a.Role == UserRoleDispatcher
}
