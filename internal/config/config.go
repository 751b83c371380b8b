// Package config loads the server configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/golfclapp/backoffice/internal/backoffice"
	"github.com/golfclapp/backoffice/internal/refresh"
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// APIBaseURL is the BackOffice API base URL. BACKOFFICE_API_URL
	// overrides it.
	APIBaseURL string `yaml:"api_base_url"`

	// APITimeout bounds each BackOffice API request, as a Go duration.
	APITimeout string `yaml:"api_timeout"`

	// DataDir holds the audit database.
	DataDir string `yaml:"data_dir"`

	// StaticDir holds the front-end files. Empty disables static serving.
	StaticDir string `yaml:"static_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Timezone is the IANA zone labels are rendered in.
	Timezone string `yaml:"timezone"`

	// RefreshCron schedules the background snapshot refresh. "off"
	// disables it.
	RefreshCron string `yaml:"refresh_cron"`

	// UsersPageSize is the page size of the user list.
	UsersPageSize int `yaml:"users_page_size"`

	// SessionStore is "memory" or "redis".
	SessionStore string `yaml:"session_store"`

	// RedisAddr is used when SessionStore is "redis".
	RedisAddr string `yaml:"redis_addr"`

	// CSRFKey enables CSRF protection when set to a 32-byte string.
	CSRFKey string `yaml:"csrf_key,omitempty"`

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool `yaml:"cookie_secure"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        ":8080",
		APIBaseURL:    backoffice.DefaultBaseURL,
		APITimeout:    "30s",
		DataDir:       "./data",
		StaticDir:     "./static",
		LogLevel:      "info",
		Timezone:      "UTC",
		RefreshCron:   refresh.DefaultSpec,
		UsersPageSize: 10,
		SessionStore:  StoreMemory,
		RedisAddr:     "localhost:6379",
	}
}

// Normalize fills in missing or invalid values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if _, err := time.ParseDuration(c.APITimeout); err != nil {
		c.APITimeout = d.APITimeout
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = d.LogLevel
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.UsersPageSize <= 0 {
		c.UsersPageSize = d.UsersPageSize
	}
	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		c.SessionStore = StoreMemory
	}
	if c.RedisAddr == "" {
		c.RedisAddr = d.RedisAddr
	}
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BACKOFFICE_API_URL"); v != "" {
		c.APIBaseURL = v
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return fmt.Errorf("csrf_key must be 32 bytes, got %d", len(c.CSRFKey))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// RefreshEnabled reports whether the background refresh should run.
func (c *Config) RefreshEnabled() bool {
	return c.RefreshCron != "off"
}

// Timeout returns APITimeout as a duration.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.APITimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Location returns the display time zone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Backoffice returns the API client settings.
func (c *Config) Backoffice() backoffice.Config {
	return backoffice.Config{BaseURL: c.APIBaseURL, Timeout: c.Timeout()}
}

// Load loads configuration from the YAML file at path. On first run the
// file does not exist; a default config is written with 0600 permissions
// and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically through a temp file in the same
// directory. The final file has 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".backoffice-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
