package models

import (
	"time"
)

// LookupRecord represents one WHOIS lookup and its visitor metadata.
// Written best-effort after each successful lookup; immutable apart
// from admin deletion.
type LookupRecord struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	RequestID        string    `gorm:"index" json:"request_id"`
	SearchedIP       string    `gorm:"not null;index" json:"searched_ip"`
	OrganizationName string    `json:"organization_name"` // raw WHOIS output
	MatchedLogo      string    `json:"matched_logo"`
	VisitorIP        string    `json:"visitor_ip"`
	UserAgent        string    `json:"user_agent"`
	Referer          string    `json:"referer"`
	WanPanel         string    `json:"wan_panel"`
}
