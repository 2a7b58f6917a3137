package model

import "time"

// Roles recognised by the identity provider.
const (
	RoleGuest = "guest"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// User is an account record from the users table.  Email is display data;
// ownership is always decided by ID.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller as seen by services: the stable
// user id, the email and the role tag.
type Identity struct {
	UserID uint64
	Email  string
	Role   string
}

// RefreshToken models an entry in the refresh_tokens table.  Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
