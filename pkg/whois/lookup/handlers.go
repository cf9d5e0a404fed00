package lookup

import (
	"log"
	"net"
	"net/http"

	"github.com/danielurra/whois/pkg/whois/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Handler handles WHOIS lookup requests
type Handler struct {
	db       *gorm.DB
	invoke   Invoker
	logos    LogoSource
	fallback string
}

// NewHandler creates a new lookup handler
func NewHandler(db *gorm.DB, invoke Invoker, logos LogoSource, fallback string) *Handler {
	return &Handler{db: db, invoke: invoke, logos: logos, fallback: fallback}
}

// LookupRequest represents the lookup request body
type LookupRequest struct {
	IP       string `json:"ip" binding:"required"`
	WanPanel string `json:"wanPanel"`
}

// LookupResponse represents a successful lookup
type LookupResponse struct {
	Output string `json:"output"`
	Logo   string `json:"logo"`
}

// Lookup runs a WHOIS lookup for the submitted IP, matches the output
// against the logo set, and records the query best-effort.
func (h *Handler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid IP address"})
		return
	}

	if net.ParseIP(req.IP) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid IP address"})
		return
	}

	output, err := h.invoke(c.Request.Context(), req.IP)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Lookup failed"})
		return
	}

	files, err := h.logos.List()
	if err != nil {
		// a missing logo directory degrades to the fallback, not a failure
		log.Printf("logo listing failed: %v", err)
		files = nil
	}
	logo := MatchLogo(output, files, h.fallback)

	record := models.LookupRecord{
		RequestID:        uuid.NewString(),
		SearchedIP:       req.IP,
		OrganizationName: output,
		MatchedLogo:      logo,
		VisitorIP:        c.ClientIP(),
		UserAgent:        c.GetHeader("User-Agent"),
		Referer:          c.GetHeader("Referer"),
		WanPanel:         req.WanPanel,
	}

	// Record the query without blocking the response. A storage outage
	// must never surface as a failed lookup.
	go func() {
		if err := h.db.Create(&record).Error; err != nil {
			log.Printf("failed to record lookup %s: %v", record.RequestID, err)
		}
	}()

	c.JSON(http.StatusOK, LookupResponse{Output: output, Logo: logo})
}

// Count returns the total number of recorded lookups
func (h *Handler) Count(c *gin.Context) {
	var total int64
	if err := h.db.Model(&models.LookupRecord{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count queries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total})
}

// RegisterRoutes registers the public lookup route on the root router
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/whois", h.Lookup)
}

// RegisterStatsRoutes registers the public stats route
func (h *Handler) RegisterStatsRoutes(rg *gin.RouterGroup) {
	rg.GET("/count", h.Count)
}

// RegisterTokenRoutes registers the token-gated programmatic lookup
// route; the caller wraps the group with apitokens middleware.
func (h *Handler) RegisterTokenRoutes(rg *gin.RouterGroup) {
	rg.POST("/whois", h.Lookup)
}
