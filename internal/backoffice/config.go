// Package backoffice is a client for the remote golf BackOffice HTTP API.
package backoffice

import (
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the production BackOffice API.
const DefaultBaseURL = "https://golfclappapi.azurewebsites.net/BackOffice"

// Config holds the settings for BackOffice API access.
type Config struct {
	// BaseURL is the API base URL, without a trailing slash.
	BaseURL string

	// Timeout for each API request.
	Timeout time.Duration
}

// DefaultConfig returns the default configuration. BACKOFFICE_API_URL
// overrides the base URL.
func DefaultConfig() Config {
	return Config{
		BaseURL: getEnv("BACKOFFICE_API_URL", DefaultBaseURL),
		Timeout: 30 * time.Second,
	}
}

// normalize fills in zero values.
func (c Config) normalize() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
