package models

import (
	"time"
)

// ApiUserStatus represents an external API user's status
type ApiUserStatus string

const (
	ApiUserActive   ApiUserStatus = "active"
	ApiUserInactive ApiUserStatus = "inactive"
)

// ApiUser represents an external token holder, distinct from a
// registered dashboard user. Deleting an ApiUser removes all of its
// tokens and their usage records.
type ApiUser struct {
	ID          uint          `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	FirstName   string        `gorm:"not null" json:"first_name"`
	LastName    string        `gorm:"not null" json:"last_name"`
	Email       string        `gorm:"uniqueIndex;not null" json:"email"`
	Phone       string        `json:"phone"`
	Website     string        `json:"website"`
	Notes       string        `json:"notes"`
	Status      ApiUserStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedByID uint          `json:"created_by_id"`

	// Relationships
	Tokens []ApiToken `gorm:"foreignKey:UserID" json:"tokens,omitempty"`
}
