// ABOUTME: Application configuration loaded from environment variables
// ABOUTME: Supports .env files and XDG-compliant default data paths
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	Addr string
	Env  string

	// DatabasePath is the sqlite file location.
	DatabasePath string

	// VaultSecret feeds the credential vault key derivation.
	VaultSecret string

	// Google OAuth app credentials for the calendar connect flow.
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	// IdentityCacheTTL bounds how long resolved user identities are served
	// from memory before re-reading the store.
	IdentityCacheTTL time.Duration
}

// DefaultDatabasePath returns the XDG-compliant sqlite location.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "meetgraph", "meetgraph.db")
}

// Load reads configuration from the environment. A .env file is applied if
// present but never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:               getEnv("ADDR", ":8080"),
		Env:                getEnv("ENV", "development"),
		DatabasePath:       getEnv("DATABASE_PATH", DefaultDatabasePath()),
		VaultSecret:        os.Getenv("VAULT_SECRET"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/oauth/callback"),
		IdentityCacheTTL:   getEnvDuration("IDENTITY_CACHE_TTL_SECONDS", 5*time.Minute),
	}

	if cfg.VaultSecret == "" {
		return nil, fmt.Errorf("VAULT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
