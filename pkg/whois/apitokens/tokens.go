package apitokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/danielurra/whois/pkg/whois/models"
	"gorm.io/gorm"
)

const (
	// TokenPrefix marks tokens issued by this service so verification
	// can reject foreign values before touching the database
	TokenPrefix = "whois_"
	// TokenLength is the number of random bytes per token (32 bytes =
	// 256 bits, hex-encoded to 64 chars)
	TokenLength = 32
)

var (
	ErrNotFound = errors.New("not found")
)

// GenerateToken creates a new random API token and the SHA-256 hash
// stored in its place. The plaintext is shown once at creation and is
// never recoverable afterwards.
func GenerateToken() (plaintext, hash string, err error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}
	plaintext = TokenPrefix + hex.EncodeToString(bytes)
	return plaintext, HashToken(plaintext), nil
}

// HashToken returns the hex SHA-256 digest of a token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken resolves a plaintext token to its record and owning API
// user. It returns nil for anything that must not authenticate: wrong
// prefix, unknown hash, non-active status, expired token (the status
// is flipped to expired and persisted), or an inactive owner. On
// success the token's last-used timestamp and usage count are updated.
func VerifyToken(db *gorm.DB, plaintext string) (*models.ApiToken, error) {
	if !strings.HasPrefix(plaintext, TokenPrefix) {
		return nil, nil
	}

	var token models.ApiToken
	err := db.Preload("User").
		Where("token_hash = ? AND status = ?", HashToken(plaintext), models.TokenActive).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if token.Expired(time.Now()) {
		if err := db.Model(&token).Update("status", models.TokenExpired).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}

	if token.User.Status != models.ApiUserActive {
		return nil, nil
	}

	now := time.Now()
	if err := db.Model(&models.ApiToken{}).Where("id = ?", token.ID).Updates(map[string]interface{}{
		"last_used_at": now,
		"usage_count":  gorm.Expr("usage_count + 1"),
	}).Error; err != nil {
		return nil, err
	}
	token.LastUsedAt = &now
	token.UsageCount++

	return &token, nil
}

// RateLimitStatus reports a token's position in its sliding one-hour
// window.
type RateLimitStatus struct {
	Limit     int  `json:"limit"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	IsLimited bool `json:"isLimited"`
}

// CheckRateLimit counts usage records for the token in the trailing 60
// minutes. The window slides with "now" rather than resetting on the
// hour, so a caller cannot burst across a boundary.
func CheckRateLimit(db *gorm.DB, tokenID uint, rateLimit int) (RateLimitStatus, error) {
	var used int64
	err := db.Model(&models.ApiTokenUsage{}).
		Where("token_id = ? AND created_at > ?", tokenID, time.Now().Add(-time.Hour)).
		Count(&used).Error
	if err != nil {
		return RateLimitStatus{}, err
	}

	remaining := rateLimit - int(used)
	if remaining < 0 {
		remaining = 0
	}

	return RateLimitStatus{
		Limit:     rateLimit,
		Used:      int(used),
		Remaining: remaining,
		IsLimited: int(used) >= rateLimit,
	}, nil
}

// LogUsage appends one usage record. Best-effort: a failed write is
// logged and never fails the request being served.
func LogUsage(db *gorm.DB, usage models.ApiTokenUsage) {
	if err := db.Create(&usage).Error; err != nil {
		log.Printf("failed to log token usage for token %d: %v", usage.TokenID, err)
	}
}

// RevokeToken marks a token revoked with the acting admin and an
// optional reason. Revoking an already-revoked token re-stamps it;
// the operation is idempotent at the data level.
func RevokeToken(db *gorm.DB, tokenID, revokedBy uint, reason *string) error {
	var token models.ApiToken
	if err := db.First(&token, tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	now := time.Now()
	return db.Model(&token).Updates(map[string]interface{}{
		"status":         models.TokenRevoked,
		"revoked_at":     now,
		"revoked_by_id":  revokedBy,
		"revoked_reason": reason,
	}).Error
}
