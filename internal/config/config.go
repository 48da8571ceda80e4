// Package config loads and validates the YAML configuration for the
// timegrid daemon.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes one ICS subscription feeding events into a group.
type ICSConfig struct {
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Group is the timeline group the source's events land in. Defaults
	// to ID.
	Group string `yaml:"group" json:"group"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web surface.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level daemon configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for calendar alignment and
	// header labels (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first day of the week: "monday" or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// HorizonDays is the initial visible span in days, centered on now.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// CanvasWidth / CanvasHeight are the virtual canvas dimensions in
	// pixels used for rendering and snapshots.
	CanvasWidth  int `yaml:"canvas_width" json:"canvas_width"`
	CanvasHeight int `yaml:"canvas_height" json:"canvas_height"`

	// CacheCap bounds the per-entry interval cache length.
	CacheCap int `yaml:"cache_cap" json:"cache_cap"`

	// RefreshCron is a cron-style schedule for re-fetching ICS sources,
	// e.g. "*/15 * * * *".
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// ICS lists the subscribed event sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, protects all endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "UTC",
		WeekStart:    "monday",
		LogLevel:     "info",
		HorizonDays:  14,
		CanvasWidth:  1280,
		CanvasHeight: 720,
		CacheCap:     10000,
		RefreshCron:  "*/15 * * * *",
		ICS:          []ICSConfig{},
	}
}

// Normalize fills missing or out-of-range values with defaults so that
// partially filled config files still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = d.WeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = d.CanvasWidth
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = d.CanvasHeight
	}
	if c.CacheCap <= 0 {
		c.CacheCap = d.CacheCap
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].Group == "" {
			c.ICS[i].Group = c.ICS[i].ID
		}
	}
}

// Load reads the config at path. A missing file yields defaults; a present
// but unparsable file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config to path with 0600 permissions, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// WeekStartsOn maps the configured week start to a weekday.
func (c *Config) WeekStartsOn() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
