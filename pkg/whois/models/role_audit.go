package models

import (
	"time"
)

// RoleAudit is an append-only record of a registered user's role
// change, written on every change with the acting admin and an
// optional reason.
type RoleAudit struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	PreviousRole *string   `json:"previous_role"`
	NewRole      string    `gorm:"not null" json:"new_role"`
	ChangedByID  uint      `gorm:"not null" json:"changed_by_id"`
	ChangeReason *string   `json:"change_reason"`

	// Relationships
	User      User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ChangedBy User `gorm:"foreignKey:ChangedByID" json:"changed_by,omitempty"`
}
