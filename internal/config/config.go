// Package config loads runtime settings for the server and shelfctl.
//
// Settings come from three layers, later ones winning:
//
//  1. Default(): works out of the box for local development
//  2. a TOML file (optional; a missing file is not an error)
//  3. environment variables (PORT, DB_PATH, JWT_SECRET, ...)
//
// Example shelf.toml:
//
//	log_level = "info"
//
//	[server]
//	port = 8080
//
//	[storage]
//	local_dir = "data/local"
//	remote_db = "data/shelf.db"
//	local_only = false
//
//	[auth]
//	jwt_secret = "change-me-to-something-long"
//
//	[migration]
//	workers = 4
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel  string          `toml:"log_level"`
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Auth      AuthConfig      `toml:"auth"`
	Migration MigrationConfig `toml:"migration"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// StorageConfig locates both snippet stores.
type StorageConfig struct {
	LocalDir      string `toml:"local_dir"`
	LocalInMemory bool   `toml:"local_in_memory"`
	RemoteDB      string `toml:"remote_db"` // file path or ":memory:"
	// LocalOnly keeps every snippet on the device even for signed-in users
	// and disables migration.
	LocalOnly bool `toml:"local_only"`
}

// AuthConfig holds sign-in settings. An empty JWTSecret disables auth.
type AuthConfig struct {
	JWTSecret          string `toml:"jwt_secret"`
	GitHubClientID     string `toml:"github_client_id"`
	GitHubClientSecret string `toml:"github_client_secret"`
	GitHubCallbackURL  string `toml:"github_callback_url"`
}

// MigrationConfig tunes the local → remote migration.
type MigrationConfig struct {
	Workers int `toml:"workers"`
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerConfig{Port: 8080},
		Storage: StorageConfig{
			LocalDir: "data/local",
			RemoteDB: "data/shelf.db",
		},
		Migration: MigrationConfig{Workers: 4},
	}
}

// Read decodes TOML from r on top of the defaults.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	return cfg, nil
}

// Load reads path (if it exists), applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("config: opening %s: %w", path, err)
		default:
			defer f.Close()
			if cfg, err = Read(f); err != nil {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is
// os.LookupEnv in production and a map in tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT value %q", v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LOCAL_ONLY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid LOCAL_ONLY value %q", v)
		}
		c.Storage.LocalOnly = b
	}

	str("LOG_LEVEL", &c.LogLevel)
	str("DB_PATH", &c.Storage.RemoteDB)
	str("LOCAL_DIR", &c.Storage.LocalDir)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("GITHUB_CLIENT_ID", &c.Auth.GitHubClientID)
	str("GITHUB_CLIENT_SECRET", &c.Auth.GitHubClientSecret)
	str("GITHUB_CALLBACK_URL", &c.Auth.GitHubCallbackURL)
	return nil
}

// Validate checks ranges and fills derived defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !c.Storage.LocalInMemory && c.Storage.LocalDir == "" {
		return fmt.Errorf("config: storage.local_dir is required unless local_in_memory is set")
	}
	if c.Storage.RemoteDB == "" {
		return fmt.Errorf("config: storage.remote_db is required")
	}
	if c.Migration.Workers <= 0 {
		c.Migration.Workers = 1
	}
	if c.Auth.GitHubCallbackURL == "" {
		c.Auth.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Server.Port)
	}
	return nil
}

// AuthEnabled reports whether a JWT secret is configured.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.AuthEnabled() && c.Auth.GitHubClientID != "" && c.Auth.GitHubClientSecret != ""
}

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
}

// NewLogger builds the process logger: text output at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
