package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DirName is the per-user directory holding config and data, under the home directory.
	DirName = ".tcg-companion"

	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Config represents the application configuration.
type Config struct {
	// Deck storage configuration
	Storage StorageConfig `toml:"storage"`

	// Card catalog configuration
	Catalog CatalogConfig `toml:"catalog"`

	// Deck rules
	Decks DecksConfig `toml:"decks"`

	// REST API configuration
	API APIConfig `toml:"api"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// StorageConfig selects where decks are kept.
type StorageConfig struct {
	Backend string `toml:"backend"` // "sqlite" or "json"
	Path    string `toml:"path"`    // Database file or deck directory; empty uses the data directory
}

// CatalogConfig contains card catalog sources.
type CatalogConfig struct {
	RemoteEnabled bool   `toml:"remote_enabled"` // Try the remote catalog before the local file
	BaseURL       string `toml:"base_url"`       // Directory serving cards.json and sets.json
	LocalFile     string `toml:"local_file"`     // Fallback catalog snapshot
	Timeout       string `toml:"timeout"`        // Per-request timeout (e.g., "15s")
	RateLimit     string `toml:"rate_limit"`     // Minimum delay between requests (e.g., "100ms")
}

// DecksConfig contains deck building rules.
type DecksConfig struct {
	MaxCopies int `toml:"max_copies"` // Copies allowed per card name; 0 disables the cap
}

// APIConfig contains REST server settings.
type APIConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    "",
		},
		Catalog: CatalogConfig{
			RemoteEnabled: true,
			BaseURL:       "",
			LocalFile:     "valid_cards.json",
			Timeout:       "15s",
			RateLimit:     "100ms",
		},
		Decks: DecksConfig{
			MaxCopies: 0,
		},
		API: APIConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the per-user configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, DirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return configDir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the per-user directory.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration at path. Returns default config if the file
// doesn't exist; keys missing from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to the per-user directory.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("invalid storage backend %q: must be %q or %q", c.Storage.Backend, BackendSQLite, BackendJSON)
	}

	if _, err := time.ParseDuration(c.Catalog.Timeout); err != nil {
		return fmt.Errorf("invalid catalog timeout %q: %w", c.Catalog.Timeout, err)
	}
	if _, err := time.ParseDuration(c.Catalog.RateLimit); err != nil {
		return fmt.Errorf("invalid catalog rate limit %q: %w", c.Catalog.RateLimit, err)
	}

	if c.Decks.MaxCopies < 0 {
		return fmt.Errorf("invalid decks max_copies: %d", c.Decks.MaxCopies)
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid API port: %d", c.API.Port)
	}

	return nil
}

// GetCatalogTimeout returns the catalog request timeout as a duration.
func (c *Config) GetCatalogTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.Timeout)
}

// GetCatalogRateLimit returns the delay between catalog requests as a duration.
func (c *Config) GetCatalogRateLimit() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.RateLimit)
}

// StoragePath returns the configured storage path, or the default location
// inside dataDir for the selected backend.
func (c *Config) StoragePath(dataDir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == BackendJSON {
		return filepath.Join(dataDir, "decks")
	}
	return filepath.Join(dataDir, "decks.db")
}
