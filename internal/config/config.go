// Package config provides runtime configuration for the kitchensync server
// and client.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// KITCHENSYNC_* environment variables. Command-line flags are applied on
// top by the cli package.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role is the permission level a bearer token grants.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleStation Role = "station"
)

// Roles lists every role.
var Roles = []Role{RoleAdmin, RoleCashier, RoleStation}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if known == r {
			return true
		}
	}
	return false
}

// Config holds configuration knobs for the server and client.
type Config struct {
	HTTPAddr                 string        `yaml:"http_addr"`
	Database                 string        `yaml:"database"`
	ShutdownTimeout          time.Duration `yaml:"shutdown_timeout"`
	SubscriberBacklogWarning int           `yaml:"subscriber_backlog_warning"`
	AllowedOrigins           []string      `yaml:"allowed_origins"`
	Log                      LogConfig     `yaml:"log"`
	Auth                     AuthConfig    `yaml:"auth"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuthConfig maps bearer tokens to roles. An empty map disables the gate.
type AuthConfig struct {
	Tokens map[string]Role `yaml:"tokens"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:                 ":8080",
		Database:                 "kitchensync.db",
		ShutdownTimeout:          15 * time.Second,
		SubscriberBacklogWarning: 1000,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getenv("KITCHENSYNC_HTTP_ADDR", cfg.HTTPAddr)
	cfg.Database = getenv("KITCHENSYNC_DATABASE", cfg.Database)
	cfg.Log.Level = getenv("KITCHENSYNC_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("KITCHENSYNC_LOG_FORMAT", cfg.Log.Format)

	if v := os.Getenv("KITCHENSYNC_SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("KITCHENSYNC_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v := os.Getenv("KITCHENSYNC_SUBSCRIBER_BACKLOG_WARNING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KITCHENSYNC_SUBSCRIBER_BACKLOG_WARNING: %w", err)
		}
		cfg.SubscriberBacklogWarning = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("http_addr must not be empty")
	}
	if c.Database == "" {
		return errors.New("database must not be empty")
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative, got %s", c.ShutdownTimeout)
	}
	if c.SubscriberBacklogWarning < 0 {
		return fmt.Errorf("subscriber_backlog_warning must not be negative, got %d", c.SubscriberBacklogWarning)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	for token, role := range c.Auth.Tokens {
		if strings.TrimSpace(token) == "" {
			return errors.New("auth.tokens: empty token")
		}
		if !role.Valid() {
			return fmt.Errorf("auth.tokens: unknown role %q", role)
		}
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// NewLogger builds the configured slog logger writing to w. verbose forces
// the debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
