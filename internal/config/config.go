package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kakaocal/internal/diary"
	"kakaocal/internal/fsutil"
	"kakaocal/internal/ics"
	appLog "kakaocal/internal/log"
)

// NOTE: This file provides the configuration model and YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. CLI flags override the loaded values.

const (
	DefaultOutput   = "out/outlook-import.ics"
	DefaultState    = ".kakao-dedup.json"
	DefaultListen   = "127.0.0.1:8080"
	DefaultSchedule = "*/15 * * * *"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the upload UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// WatchConfig drives the scheduled batch mode.
type WatchConfig struct {
	// Schedule is a cron expression (e.g. "*/15 * * * *").
	Schedule string `yaml:"schedule" json:"schedule"`

	// Inputs are chat export paths or glob patterns.
	Inputs []string `yaml:"inputs" json:"inputs"`
}

// Config is the top-level application configuration.
type Config struct {
	// Output is the path of the generated .ics file.
	Output string `yaml:"output" json:"output"`

	// State is the path of the dedup store.
	State string `yaml:"state" json:"state"`

	// DurationMinutes is recorded in every event; it does not affect dates.
	DurationMinutes int `yaml:"duration_minutes" json:"duration_minutes"`

	// CutoffHour (0-23): messages before this hour belong to the previous
	// diary day.
	CutoffHour int `yaml:"cutoff_hour" json:"cutoff_hour"`

	// Timezone is the IANA zone transcript times are read in. Empty means
	// the process local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Listen is the HTTP listen address for the upload UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Watch WatchConfig `yaml:"watch" json:"watch"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Output:          DefaultOutput,
		State:           DefaultState,
		DurationMinutes: ics.DefaultDurationMinutes,
		CutoffHour:      diary.DefaultCutoffHour,
		Listen:          DefaultListen,
		Watch: WatchConfig{
			Schedule: DefaultSchedule,
			Inputs:   []string{},
		},
	}
}

// Normalize replaces missing or out-of-range values with defaults.
func (c *Config) Normalize() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.State == "" {
		c.State = DefaultState
	}
	if c.DurationMinutes <= 0 {
		c.DurationMinutes = ics.DefaultDurationMinutes
	}
	if !validCutoff(c.CutoffHour) {
		c.CutoffHour = diary.DefaultCutoffHour
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = DefaultSchedule
	}
	if c.Watch.Inputs == nil {
		c.Watch.Inputs = []string{}
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If path is empty, defaults are returned.
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise YAML is decoded over the defaults, so absent keys keep
//     their default values, and the result is normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to path atomically with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fsutil.WriteFile(path, data, 0o600)
}

// ParseDuration returns the positive integer in s, or def when s is empty,
// malformed or not positive.
func ParseDuration(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ParseCutoff returns the hour in s, or def when s is empty, malformed or
// outside 0-23.
func ParseCutoff(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !validCutoff(n) {
		return def
	}
	return n
}

func validCutoff(h int) bool {
	return h >= 0 && h <= 23
}
