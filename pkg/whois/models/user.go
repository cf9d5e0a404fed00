package models

import (
	"time"
)

// Role represents a registered user's dashboard role
type Role string

const (
	RoleTopGun        Role = "Top Gun"
	RoleWebappAdmin   Role = "Webapp Admin"
	RoleReadOnlyAdmin Role = "Read Only Admin"
)

// AllRoles returns the assignable roles in display order
func AllRoles() []Role {
	return []Role{RoleTopGun, RoleWebappAdmin, RoleReadOnlyAdmin}
}

// ValidRole reports whether s is a known role
func ValidRole(s string) bool {
	for _, r := range AllRoles() {
		if string(r) == s {
			return true
		}
	}
	return false
}

// User represents a registered dashboard user
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	FirstName    string     `gorm:"not null" json:"first_name"`
	LastName     string     `gorm:"not null" json:"last_name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `gorm:"type:varchar(20);default:'Read Only Admin'" json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// CanWrite reports whether the user's role permits mutating operations
func (u *User) CanWrite() bool {
	return u.Role != RoleReadOnlyAdmin
}
