package domain

import "time"

// UserRole is the authorization tier of an account. Admins are staff for
// every capability check in the engine.
type UserRole string

const (
	UserRoleEndUser UserRole = "user"
	UserRoleAdmin   UserRole = "admin"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for platform accounts (customers and staff).
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
