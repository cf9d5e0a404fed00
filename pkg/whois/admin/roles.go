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

// ChangeRoleRequest represents a role change with an optional reason
type ChangeRoleRequest struct {
	Role   string  `json:"role" binding:"required"`
	Reason *string `json:"reason"`
}

// RoleAuditResponse represents one audit entry joined with the
// affected user and the acting admin
type RoleAuditResponse struct {
	ID           uint    `json:"id"`
	UserID       uint    `json:"user_id"`
	UserEmail    string  `json:"user_email"`
	UserName     string  `json:"user_name"`
	PreviousRole *string `json:"previous_role"`
	NewRole      string  `json:"new_role"`
	ChangedBy    string  `json:"changed_by"`
	ChangeReason *string `json:"change_reason"`
	CreatedAt    string  `json:"created_at"`
}

// ListRoles returns the assignable roles
func (h *Handler) ListRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": models.AllRoles()})
}

// ChangeRole updates a user's role and writes an audit record. A Top
// Gun cannot demote themselves; every change is recorded with the
// actor and an optional reason.
func (h *Handler) ChangeRole(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if uint(id) == currentUserID && req.Role != string(models.RoleTopGun) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if string(user.Role) == req.Role {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already has this role"})
		return
	}

	previous := string(user.Role)
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("role", req.Role).Error; err != nil {
			return err
		}
		audit := models.RoleAudit{
			UserID:       user.ID,
			PreviousRole: &previous,
			NewRole:      req.Role,
			ChangedByID:  currentUserID,
			ChangeReason: req.Reason,
		}
		return tx.Create(&audit).Error
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change role"})
		return
	}

	h.db.First(&user, id)
	c.JSON(http.StatusOK, userToResponse(user))
}

// ListRoleAudit returns role change history, newest first, searchable
// by the affected user's or the actor's email
func (h *Handler) ListRoleAudit(c *gin.Context) {
	params := listing.ParseParams(c)

	query := h.db.Model(&models.RoleAudit{}).
		Joins("JOIN users ON users.id = role_audits.user_id").
		Joins("JOIN users AS actors ON actors.id = role_audits.changed_by_id")

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("users.email LIKE ? OR actors.email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch role audit"})
		return
	}

	var audits []models.RoleAudit
	if err := query.Preload("User").Preload("ChangedBy").
		Order("role_audits.created_at DESC").
		Limit(params.Limit).Offset(params.Offset()).Find(&audits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch role audit"})
		return
	}

	responses := make([]RoleAuditResponse, len(audits))
	for i, audit := range audits {
		responses[i] = RoleAuditResponse{
			ID:           audit.ID,
			UserID:       audit.UserID,
			UserEmail:    audit.User.Email,
			UserName:     audit.User.FirstName + " " + audit.User.LastName,
			PreviousRole: audit.PreviousRole,
			NewRole:      audit.NewRole,
			ChangedBy:    audit.ChangedBy.Email,
			ChangeReason: audit.ChangeReason,
			CreatedAt:    audit.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       responses,
		"pagination": listing.NewPagination(params, total),
	})
}
