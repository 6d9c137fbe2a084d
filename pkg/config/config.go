package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ssargent/mediashelf/pkg/storage"
	"gopkg.in/yaml.v3"
)

// Config represents the MediaShelf configuration
type Config struct {
	DataDir   string    `yaml:"data_dir" koanf:"data_dir"`
	Port      int       `yaml:"port" koanf:"port"`
	Bind      string    `yaml:"bind" koanf:"bind"`
	Storage   Storage   `yaml:"storage" koanf:"storage"`
	Enrich    Enrich    `yaml:"enrich" koanf:"enrich"`
	Export    Export    `yaml:"export" koanf:"export"`
	Security  Security  `yaml:"security" koanf:"security"`
	RateLimit RateLimit `yaml:"rate_limit" koanf:"rate_limit"`
	Logging   Logging   `yaml:"logging" koanf:"logging"`
}

// Storage selects the collection engine
type Storage struct {
	Engine        string        `yaml:"engine" koanf:"engine"`
	FsyncInterval time.Duration `yaml:"fsync_interval" koanf:"fsync_interval"`
}

// Enrich configures the remote catalog lookup
type Enrich struct {
	Enabled       bool          `yaml:"enabled" koanf:"enabled"`
	BaseURL       string        `yaml:"base_url" koanf:"base_url"`
	APIKey        string        `yaml:"api_key" koanf:"api_key"`
	Timeout       time.Duration `yaml:"timeout" koanf:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second" koanf:"rate_per_second"`
	Burst         int           `yaml:"burst" koanf:"burst"`
	MaxRetries    int           `yaml:"max_retries" koanf:"max_retries"`
	// BreakerFailures consecutive failures open the circuit breaker
	BreakerFailures uint32        `yaml:"breaker_failures" koanf:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" koanf:"breaker_cooldown"`
}

// Export configures document rendering
type Export struct {
	// ReviewsPerPage caps how many reviews are laid out on one PDF page
	ReviewsPerPage int `yaml:"reviews_per_page" koanf:"reviews_per_page"`
}

// Security contains security-related configuration
type Security struct {
	// APIKey, when set, is required in the X-API-Key header of mutating requests
	APIKey          string   `yaml:"api_key" koanf:"api_key"`
	CORSOrigins     []string `yaml:"cors_origins" koanf:"cors_origins"`
	FrontendDevURL  string   `yaml:"frontend_dev_url" koanf:"frontend_dev_url"`
	FrontendProdURL string   `yaml:"frontend_prod_url" koanf:"frontend_prod_url"`
}

// AllowedOrigins returns the CORS whitelist including the front-end URLs.
func (s Security) AllowedOrigins() []string {
	origins := make([]string, 0, len(s.CORSOrigins)+2)
	origins = append(origins, s.CORSOrigins...)
	for _, u := range []string{s.FrontendDevURL, s.FrontendProdURL} {
		if u != "" {
			origins = append(origins, u)
		}
	}
	return origins
}

// RateLimit configures per-client request limiting
type RateLimit struct {
	Requests int           `yaml:"requests" koanf:"requests"`
	Window   time.Duration `yaml:"window" koanf:"window"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Storage: Storage{
			Engine:        storage.EngineLog,
			FsyncInterval: 0,
		},
		Enrich: Enrich{
			Enabled:         true,
			BaseURL:         "https://www.omdbapi.com",
			Timeout:         10 * time.Second,
			RatePerSecond:   5,
			Burst:           5,
			MaxRetries:      2,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Export: Export{
			ReviewsPerPage: 12,
		},
		Security: Security{
			CORSOrigins: []string{},
		},
		RateLimit: RateLimit{
			Requests: 100,
			Window:   time.Minute,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Storage.Engine {
	case storage.EngineLog, storage.EnginePebble:
	default:
		errs = append(errs, fmt.Errorf("storage.engine must be %q or %q, got %q",
			storage.EngineLog, storage.EnginePebble, c.Storage.Engine))
	}
	if c.Enrich.Enabled {
		if _, err := url.ParseRequestURI(c.Enrich.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("enrich.base_url: %w", err))
		}
		if c.Enrich.Timeout <= 0 {
			errs = append(errs, errors.New("enrich.timeout must be positive"))
		}
	}
	if c.Export.ReviewsPerPage <= 0 {
		errs = append(errs, errors.New("export.reviews_per_page must be positive"))
	}
	if c.RateLimit.Requests < 0 {
		errs = append(errs, errors.New("rate_limit.requests must not be negative"))
	}

	return errors.Join(errs...)
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file carries API keys
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./shelf.yaml"
	}
	return filepath.Join(homeDir, ".config", "shelf", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
