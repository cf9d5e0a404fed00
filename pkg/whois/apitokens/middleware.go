package apitokens

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielurra/whois/pkg/whois/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	// ContextKeyTokenID is the key for the verified token ID in gin context
	ContextKeyTokenID = "api_token_id"
	// ContextKeyApiUserID is the key for the owning API user ID in gin context
	ContextKeyApiUserID = "api_user_id"
	// ContextKeyScope is the key for the token scope in gin context
	ContextKeyScope = "api_token_scope"
)

// ipAllowed checks the client IP against a token's whitelist. An empty
// whitelist allows any address.
func ipAllowed(token *models.ApiToken, ip string) bool {
	if token.IPWhitelist == "" {
		return true
	}
	for _, allowed := range strings.Split(token.IPWhitelist, ",") {
		if strings.TrimSpace(allowed) == ip {
			return true
		}
	}
	return false
}

// TokenAuthMiddleware authenticates third-party API calls with a
// "Bearer whois_..." token, enforces the token's hourly rate limit,
// and appends one usage record per call with the response status and
// latency. Usage logging is best-effort and never fails the request.
func TokenAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token, err := VerifyToken(db, parts[1])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token verification failed"})
			c.Abort()
			return
		}
		if token == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API token"})
			c.Abort()
			return
		}

		if !ipAllowed(token, c.ClientIP()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "IP address not allowed"})
			c.Abort()
			return
		}

		limit, err := CheckRateLimit(db, token.ID, token.RateLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit.Remaining))

		if limit.IsLimited {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Set(ContextKeyTokenID, token.ID)
		c.Set(ContextKeyApiUserID, token.UserID)
		c.Set(ContextKeyScope, token.Scope)

		start := time.Now()
		c.Next()

		LogUsage(db, models.ApiTokenUsage{
			TokenID:        token.ID,
			UserID:         token.UserID,
			Endpoint:       c.FullPath(),
			Method:         c.Request.Method,
			IPAddress:      c.ClientIP(),
			UserAgent:      c.GetHeader("User-Agent"),
			ResponseStatus: c.Writer.Status(),
			ResponseTimeMs: time.Since(start).Milliseconds(),
		})
	}
}
