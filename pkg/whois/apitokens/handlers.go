package apitokens

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielurra/whois/pkg/whois/auth"
	"github.com/danielurra/whois/pkg/whois/listing"
	"github.com/danielurra/whois/pkg/whois/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles API user and token management requests
type Handler struct {
	db               *gorm.DB
	defaultRateLimit int
}

// NewHandler creates a new API tokens handler
func NewHandler(db *gorm.DB, defaultRateLimit int) *Handler {
	if defaultRateLimit <= 0 {
		defaultRateLimit = 1000
	}
	return &Handler{db: db, defaultRateLimit: defaultRateLimit}
}

// CreateApiUserRequest represents a request to create an API user
type CreateApiUserRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	Notes     string `json:"notes"`
}

// UpdateApiUserRequest represents a request to update an API user
type UpdateApiUserRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Website   string `json:"website"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
}

// CreateTokenRequest represents a request to issue a token
type CreateTokenRequest struct {
	UserID        uint     `json:"userId" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	ExpiresInDays int      `json:"expiresInDays"`
	RateLimit     int      `json:"rateLimit"`
	Scope         string   `json:"scope"`
	IPWhitelist   []string `json:"ipWhitelist"`
}

// CreateTokenResponse includes the plaintext token. This is the only
// response that ever carries it.
type CreateTokenResponse struct {
	ID        uint       `json:"id"`
	Token     string     `json:"token"`
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at"`
	RateLimit int        `json:"rate_limit"`
	Scope     string     `json:"scope"`
}

// TokenResponse represents a token in list responses, joined with its
// owner. The hash is never serialized.
type TokenResponse struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	UserID     uint       `json:"user_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	UserEmail  string     `json:"user_email"`
	ExpiresAt  *time.Time `json:"expires_at"`
	RateLimit  int        `json:"rate_limit"`
	Scope      string     `json:"scope"`
	Status     string     `json:"status"`
	LastUsedAt *time.Time `json:"last_used_at"`
	UsageCount uint       `json:"usage_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

func tokenToResponse(token models.ApiToken) TokenResponse {
	return TokenResponse{
		ID:         token.ID,
		Name:       token.Name,
		UserID:     token.UserID,
		FirstName:  token.User.FirstName,
		LastName:   token.User.LastName,
		UserEmail:  token.User.Email,
		ExpiresAt:  token.ExpiresAt,
		RateLimit:  token.RateLimit,
		Scope:      token.Scope,
		Status:     string(token.Status),
		LastUsedAt: token.LastUsedAt,
		UsageCount: token.UsageCount,
		CreatedAt:  token.CreatedAt,
	}
}

// CreateUser creates a new API user
func (h *Handler) CreateUser(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	var req CreateApiUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.ApiUser
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}

	user := models.ApiUser{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Website:     req.Website,
		Notes:       req.Notes,
		Status:      models.ApiUserActive,
		CreatedByID: actorID,
	}

	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create API user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ListUsers returns API users with pagination and search
func (h *Handler) ListUsers(c *gin.Context) {
	params := listing.ParseParams(c)

	query := h.db.Model(&models.ApiUser{})
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch API users"})
		return
	}

	order := params.OrderClause(map[string]string{
		"id":         "id",
		"first_name": "first_name",
		"last_name":  "last_name",
		"email":      "email",
		"status":     "status",
		"created_at": "created_at",
	}, "created_at")

	var users []models.ApiUser
	if err := query.Order(order).Limit(params.Limit).Offset(params.Offset()).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch API users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       users,
		"pagination": listing.NewPagination(params, total),
	})
}

// UpdateUser updates an API user's profile and status
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.ApiUser
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API user not found"})
		return
	}

	var req UpdateApiUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.ApiUserStatus(req.Status)
	if req.Status == "" {
		status = models.ApiUserActive
	} else if status != models.ApiUserActive && status != models.ApiUserInactive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	// Check if the email is taken by another user
	var existing models.ApiUser
	if err := h.db.Where("email = ? AND id != ?", req.Email, user.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use by another user"})
		return
	}

	updates := map[string]interface{}{
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"email":      req.Email,
		"phone":      req.Phone,
		"website":    req.Website,
		"notes":      req.Notes,
		"status":     status,
	}

	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update API user"})
		return
	}

	h.db.First(&user, id)
	c.JSON(http.StatusOK, user)
}

// DeleteUser deletes an API user and cascades to its tokens and their
// usage records
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.ApiUser
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API user not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var tokenIDs []uint
		if err := tx.Model(&models.ApiToken{}).Where("user_id = ?", user.ID).Pluck("id", &tokenIDs).Error; err != nil {
			return err
		}
		if len(tokenIDs) > 0 {
			if err := tx.Where("token_id IN ?", tokenIDs).Delete(&models.ApiTokenUsage{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.ApiToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete API user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API user deleted"})
}

// ListUserTokens returns all tokens belonging to one API user
func (h *Handler) ListUserTokens(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.ApiUser
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API user not found"})
		return
	}

	var tokens []models.ApiToken
	if err := h.db.Preload("User").Where("user_id = ?", user.ID).
		Order("created_at DESC").Find(&tokens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tokens"})
		return
	}

	responses := make([]TokenResponse, len(tokens))
	for i, token := range tokens {
		responses[i] = tokenToResponse(token)
	}

	c.JSON(http.StatusOK, responses)
}

// CreateToken issues a new token for an API user. The plaintext is
// returned here and only here.
func (h *Handler) CreateToken(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.ApiUser
	if err := h.db.First(&user, req.UserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API user not found"})
		return
	}

	plaintext, hash, err := GenerateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}

	rateLimit := req.RateLimit
	if rateLimit <= 0 {
		rateLimit = h.defaultRateLimit
	}
	scope := req.Scope
	if scope == "" {
		scope = "read"
	}

	token := models.ApiToken{
		UserID:      user.ID,
		TokenHash:   hash,
		Name:        req.Name,
		ExpiresAt:   expiresAt,
		RateLimit:   rateLimit,
		Scope:       scope,
		IPWhitelist: strings.Join(req.IPWhitelist, ","),
		Status:      models.TokenActive,
		CreatedByID: actorID,
	}

	if err := h.db.Create(&token).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusCreated, CreateTokenResponse{
		ID:        token.ID,
		Token:     plaintext,
		Name:      token.Name,
		ExpiresAt: token.ExpiresAt,
		RateLimit: token.RateLimit,
		Scope:     token.Scope,
	})
}

// ListTokens returns all tokens joined with owner information, with
// pagination, search, and an optional status filter
func (h *Handler) ListTokens(c *gin.Context) {
	params := listing.ParseParams(c)

	query := h.db.Model(&models.ApiToken{}).
		Joins("JOIN api_users ON api_users.id = api_tokens.user_id")

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"api_tokens.name LIKE ? OR api_users.email LIKE ? OR api_users.first_name LIKE ? OR api_users.last_name LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("api_tokens.status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tokens"})
		return
	}

	order := params.OrderClause(map[string]string{
		"id":         "api_tokens.id",
		"name":       "api_tokens.name",
		"user_email": "api_users.email",
		"expires_at": "api_tokens.expires_at",
		"status":     "api_tokens.status",
		"created_at": "api_tokens.created_at",
	}, "api_tokens.created_at")

	var tokens []models.ApiToken
	if err := query.Preload("User").Order(order).
		Limit(params.Limit).Offset(params.Offset()).Find(&tokens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tokens"})
		return
	}

	responses := make([]TokenResponse, len(tokens))
	for i, token := range tokens {
		responses[i] = tokenToResponse(token)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       responses,
		"pagination": listing.NewPagination(params, total),
	})
}

// RevokeTokenRequest carries the optional revocation reason
type RevokeTokenRequest struct {
	Reason *string `json:"reason"`
}

// Revoke revokes a token with the acting admin and optional reason
func (h *Handler) Revoke(c *gin.Context) {
	actorID, _ := auth.GetUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	var req RevokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Reason = nil
	}

	if err := RevokeToken(h.db, uint(id), actorID, req.Reason); err != nil {
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token revoked"})
}

// UpdateStatusRequest carries the new token status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus toggles a token between active and inactive. Revoked
// and expired are terminal; no status change escapes them.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidTokenStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	var token models.ApiToken
	if err := h.db.First(&token, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	if token.Status == models.TokenRevoked || token.Status == models.TokenExpired {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot change status of a " + string(token.Status) + " token"})
		return
	}

	if err := h.db.Model(&token).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated"})
}

// DeleteToken deletes a token and its usage records
func (h *Handler) DeleteToken(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	var token models.ApiToken
	if err := h.db.First(&token, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_id = ?", token.ID).Delete(&models.ApiTokenUsage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&token).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token deleted"})
}

// RateLimit reports a token's sliding-window rate limit status
func (h *Handler) RateLimit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	var token models.ApiToken
	if err := h.db.First(&token, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
		return
	}

	status, err := CheckRateLimit(h.db, token.ID, token.RateLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check rate limit"})
		return
	}

	c.JSON(http.StatusOK, status)
}

// RegisterRoutes registers API user and token management routes.
// Listing is open to any authenticated admin; mutations are blocked
// for Read Only Admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	write := auth.RequireWrite()

	rg.GET("/api-users", h.ListUsers)
	rg.POST("/api-users", write, h.CreateUser)
	rg.PUT("/api-users/:id", write, h.UpdateUser)
	rg.DELETE("/api-users/:id", write, h.DeleteUser)
	rg.GET("/api-users/:id/tokens", h.ListUserTokens)

	rg.GET("/api-tokens", h.ListTokens)
	rg.POST("/api-tokens", write, h.CreateToken)
	rg.GET("/api-tokens/:id/rate-limit", h.RateLimit)
	rg.POST("/api-tokens/:id/revoke", write, h.Revoke)
	rg.PUT("/api-tokens/:id", write, h.UpdateStatus)
	rg.DELETE("/api-tokens/:id", write, h.DeleteToken)
}
