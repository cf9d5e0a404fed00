package models

import (
	"time"
)

// TokenStatus represents an API token's lifecycle state.
// Tokens move active→expired (lazily, at verification) or
// active→revoked (explicit admin action); neither is reversible.
type TokenStatus string

const (
	TokenActive   TokenStatus = "active"
	TokenInactive TokenStatus = "inactive"
	TokenRevoked  TokenStatus = "revoked"
	TokenExpired  TokenStatus = "expired"
)

// ValidTokenStatus reports whether s is a known token status
func ValidTokenStatus(s string) bool {
	switch TokenStatus(s) {
	case TokenActive, TokenInactive, TokenRevoked, TokenExpired:
		return true
	}
	return false
}

// ApiToken represents a long-lived bearer token for programmatic
// access. Only the SHA-256 hash of the token is stored; the plaintext
// is returned once at creation and never again.
type ApiToken struct {
	ID            uint        `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	TokenHash     string      `gorm:"uniqueIndex;not null" json:"-"`
	Name          string      `gorm:"not null" json:"name"`
	ExpiresAt     *time.Time  `json:"expires_at"`
	RateLimit     int         `gorm:"default:1000" json:"rate_limit"` // requests per hour
	Scope         string      `gorm:"type:varchar(20);default:'read'" json:"scope"`
	IPWhitelist   string      `json:"ip_whitelist"` // comma-separated, empty means any
	Status        TokenStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`
	LastUsedAt    *time.Time  `json:"last_used_at"`
	UsageCount    uint        `gorm:"default:0" json:"usage_count"`
	CreatedByID   uint        `json:"created_by_id"`
	RevokedAt     *time.Time  `json:"revoked_at"`
	RevokedByID   *uint       `json:"revoked_by_id"`
	RevokedReason *string     `json:"revoked_reason"`

	// Relationships
	User ApiUser `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Expired reports whether the token's expiry has passed at t
func (tok *ApiToken) Expired(t time.Time) bool {
	return tok.ExpiresAt != nil && tok.ExpiresAt.Before(t)
}
