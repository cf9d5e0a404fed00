package models

import (
	"time"
)

// ApiTokenUsage is an append-only record of one API call made with a
// token. Rate limiting counts these rows over a trailing one-hour
// window.
type ApiTokenUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	TokenID        uint      `gorm:"not null;index" json:"token_id"`
	UserID         uint      `gorm:"not null" json:"user_id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	ResponseStatus int       `json:"response_status"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}
