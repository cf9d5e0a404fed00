package main

import (
	"log"
	"os"

	"github.com/danielurra/whois/pkg/whois/admin"
	"github.com/danielurra/whois/pkg/whois/apitokens"
	"github.com/danielurra/whois/pkg/whois/auth"
	"github.com/danielurra/whois/pkg/whois/config"
	"github.com/danielurra/whois/pkg/whois/database"
	"github.com/danielurra/whois/pkg/whois/lookup"
	"github.com/danielurra/whois/pkg/whois/models"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg.DatabasePath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create default Top Gun admin if none exists
	if err := ensureAdminExists(); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Public lookup route
	lookupHandler := lookup.NewHandler(
		database.GetDB(),
		lookup.SystemWhois(cfg.WhoisTimeout),
		lookup.NewDirLogos(cfg.LogoDir, cfg.LogoCacheTTL),
		cfg.FallbackLogo,
	)
	lookupHandler.RegisterRoutes(r)

	// API routes
	api := r.Group("/api")
	{
		lookupHandler.RegisterStatsRoutes(api.Group("/stats"))

		// Auth routes (public)
		authHandler := auth.NewHandler(database.GetDB())
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Admin routes (JWT required; per-route role gates inside)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware())

		adminHandler := admin.NewHandler(database.GetDB())
		adminHandler.RegisterRoutes(adminGroup)

		tokensHandler := apitokens.NewHandler(database.GetDB(), cfg.DefaultRateLimit)
		tokensHandler.RegisterRoutes(adminGroup)

		// Programmatic API (bearer API token, rate limited, usage logged)
		v1 := api.Group("/v1")
		v1.Use(apitokens.TokenAuthMiddleware(database.GetDB()))
		lookupHandler.RegisterTokenRoutes(v1)
	}

	// Serve the logo images referenced by lookup responses
	if _, err := os.Stat(cfg.LogoDir); err == nil {
		r.Static("/img/us_isp_logos", cfg.LogoDir)
	} else {
		log.Printf("Logo directory %s not found - lookups will return the fallback logo", cfg.LogoDir)
	}

	log.Printf("Starting WHOIS server on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default Top Gun user if no Top Gun
// exists in the database, so a fresh install can be administered.
func ensureAdminExists() error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleTopGun).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "changeme1"
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	adminUser := models.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        "admin@whois.local",
		PasswordHash: hashedPassword,
		Role:         models.RoleTopGun,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: %s", adminUser.Email)
	return nil
}
