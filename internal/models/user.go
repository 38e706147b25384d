package models

import (
	"time"
)

// Role is a user's permission level.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
	Email        string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Username     string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	FirstName    string    `gorm:"size:150;not null" json:"first_name"`
	LastName     string    `gorm:"size:150;not null" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:user" json:"role"`
	Avatar       string    `gorm:"size:512" json:"avatar"`
}

// IsAdmin reports whether the user may manage other users and the catalog.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RevokedToken records a logged-out JWT until it would have expired anyway.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time
	JTI       string    `gorm:"column:jti;size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
}
