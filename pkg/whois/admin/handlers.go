package admin

import (
	"net/http"
	"strconv"

	"github.com/danielurra/whois/pkg/whois/auth"
	"github.com/danielurra/whois/pkg/whois/listing"
	"github.com/danielurra/whois/pkg/whois/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID          uint   `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CreatedAt   string `json:"created_at"`
	LastLoginAt string `json:"last_login_at,omitempty"`
}

func userToResponse(user models.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if user.LastLoginAt != nil {
		resp.LastLoginAt = user.LastLoginAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// UpdateUserRequest represents the request to update a user's profile
type UpdateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email" binding:"omitempty,email"`
}

// ListQueries returns logged WHOIS lookups with pagination, search,
// and sorting
func (h *Handler) ListQueries(c *gin.Context) {
	params := listing.ParseParams(c)

	query := h.db.Model(&models.LookupRecord{})
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"searched_ip LIKE ? OR organization_name LIKE ? OR visitor_ip LIKE ? OR wan_panel LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch queries"})
		return
	}

	order := params.OrderClause(map[string]string{
		"id":          "id",
		"searched_ip": "searched_ip",
		"visitor_ip":  "visitor_ip",
		"wan_panel":   "wan_panel",
		"created_at":  "created_at",
	}, "created_at")

	var records []models.LookupRecord
	if err := query.Order(order).Limit(params.Limit).Offset(params.Offset()).Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch queries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       records,
		"pagination": listing.NewPagination(params, total),
	})
}

// DeleteQuery deletes one logged lookup
func (h *Handler) DeleteQuery(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query ID"})
		return
	}

	var record models.LookupRecord
	if err := h.db.First(&record, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Query not found"})
		return
	}

	if err := h.db.Delete(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete query"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Query deleted"})
}

// ListUsers returns registered users with pagination and search
func (h *Handler) ListUsers(c *gin.Context) {
	params := listing.ParseParams(c)

	query := h.db.Model(&models.User{})
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where(
			"first_name LIKE ? OR last_name LIKE ? OR email LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	order := params.OrderClause(map[string]string{
		"id":         "id",
		"first_name": "first_name",
		"last_name":  "last_name",
		"email":      "email",
		"role":       "role",
		"created_at": "created_at",
	}, "created_at")

	var users []models.User
	if err := query.Order(order).Limit(params.Limit).Offset(params.Offset()).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = userToResponse(user)
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       responses,
		"pagination": listing.NewPagination(params, total),
	})
}

// UpdateUser updates a registered user's profile
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		var existing models.User
		if err := h.db.Where("email = ? AND id != ?", *req.Email, user.ID).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already in use by another user"})
			return
		}
		updates["email"] = *req.Email
	}

	if len(updates) > 0 {
		if err := h.db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	h.db.First(&user, id)
	c.JSON(http.StatusOK, userToResponse(user))
}

// DeleteUser deletes a registered user. Self-delete is forbidden.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.db.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// RegisterRoutes registers admin routes on the given router group.
// Reads are open to any authenticated admin; mutations are blocked
// for Read Only Admin, and user administration needs Top Gun.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	write := auth.RequireWrite()
	topGun := auth.RequireTopGun()

	rg.GET("/queries", h.ListQueries)
	rg.DELETE("/queries/:id", write, h.DeleteQuery)

	rg.GET("/users", h.ListUsers)
	rg.PUT("/users/:id", write, h.UpdateUser)
	rg.DELETE("/users/:id", topGun, h.DeleteUser)

	rg.GET("/roles", topGun, h.ListRoles)
	rg.PUT("/users/:id/role", topGun, h.ChangeRole)
	rg.GET("/role-audit", h.ListRoleAudit)
}
