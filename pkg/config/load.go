package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment variables that override configuration.
// SHELF_ENRICH_API_KEY sets enrich.api_key.
const EnvPrefix = "SHELF_"

// sectioned config keys; anything else after the prefix is top level
var envSections = []string{"storage", "enrich", "export", "security", "rate_limit", "logging"}

// legacy variable names from earlier deployments
var envAliases = map[string]string{
	"OMDB_API_KEY": "enrich.api_key",
	"FE_DEV_URL":   "security.frontend_dev_url",
	"FE_PROD_URL":  "security.frontend_prod_url",
}

// comma-separated when set from the environment
var sliceKeys = []string{"security.cors_origins"}

// Load layers defaults, the YAML file at configPath (optional when empty or
// missing), and environment overrides, then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" && ConfigExists(configPath) {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSliceKeys(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads configuration from a file that must exist
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}
	return Load(configPath)
}

// envKey maps an environment variable name to a koanf path, or "" to skip.
func envKey(name string) string {
	if alias, ok := envAliases[name]; ok {
		return alias
	}
	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}

	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return key
}

func splitSliceKeys(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := make([]string, 0)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
