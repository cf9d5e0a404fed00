package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration, loaded from the environment
// with sensible defaults for development.
type Config struct {
	ServerPort       string
	DatabasePath     string
	LogoDir          string
	FallbackLogo     string
	LogoCacheTTL     time.Duration
	JWTSecret        string
	JWTTTL           time.Duration
	WhoisTimeout     time.Duration
	DefaultRateLimit int
}

// Load reads .env (if present) and the environment into a Config.
func Load() *Config {
	godotenv.Load()

	return &Config{
		ServerPort:       getEnv("PORT", "3030"),
		DatabasePath:     getEnv("WHOIS_DB_PATH", "whois.db"),
		LogoDir:          getEnv("LOGO_DIR", "public/img/us_isp_logos"),
		FallbackLogo:     getEnv("FALLBACK_LOGO", "generic_logo.png"),
		LogoCacheTTL:     parseDuration(getEnv("LOGO_CACHE_TTL", "1m")),
		JWTSecret:        getEnv("JWT_SECRET", "whois-dev-secret-change-in-production"),
		JWTTTL:           parseDuration(getEnv("JWT_TTL", "24h")),
		WhoisTimeout:     parseDuration(getEnv("WHOIS_TIMEOUT", "10s")),
		DefaultRateLimit: parseInt(getEnv("DEFAULT_RATE_LIMIT", "1000")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Hour
	}
	return d
}
