// Package config loads CLI configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the connection settings for the adlfs CLI.
type Config struct {
	// Storage target
	Account    string
	Filesystem string
	DNSSuffix  string

	// Service principal
	TenantID     string
	ClientID     string
	ClientSecret string

	// Pre-acquired bearer token (skips the credential exchange)
	Token string

	// Tuning
	BlockSize        int64
	RetryMaxAttempts int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Account:          envOr("ADLFS_ACCOUNT", ""),
		Filesystem:       envOr("ADLFS_FILESYSTEM", ""),
		DNSSuffix:        envOr("ADLFS_DNS_SUFFIX", ""),
		TenantID:         envOr("AZURE_TENANT_ID", ""),
		ClientID:         envOr("AZURE_CLIENT_ID", ""),
		ClientSecret:     envOr("AZURE_CLIENT_SECRET", ""),
		Token:            envOr("ADLFS_TOKEN", ""),
		BlockSize:        envInt64("ADLFS_BLOCK_SIZE", 0),
		RetryMaxAttempts: envInt("ADLFS_RETRY_MAX_ATTEMPTS", 0),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
	}

	if cfg.Account == "" {
		return nil, fmt.Errorf("ADLFS_ACCOUNT is required")
	}
	if cfg.Filesystem == "" {
		return nil, fmt.Errorf("ADLFS_FILESYSTEM is required")
	}
	if cfg.Token == "" && (cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "") {
		return nil, fmt.Errorf("AZURE_TENANT_ID, AZURE_CLIENT_ID, and AZURE_CLIENT_SECRET are required without ADLFS_TOKEN")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
