// ABOUTME: Configuration loading and parsing for lattice-mcp
// ABOUTME: Supports YAML files with environment variable expansion

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete lattice-mcp configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address and identity configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
}

// AuthConfig holds the authentication configuration surface
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Strategy  string `yaml:"strategy"` // none | bearer_token | api_key | function
	Token     string `yaml:"token"`
	APIKey    string `yaml:"api_key"`
	Header    string `yaml:"header"`
	JWTSecret string `yaml:"jwt_secret"` // used when strategy is "function" with the JWT verifier
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Auth.Enabled {
		switch c.Auth.Strategy {
		case "", "none":
		case "bearer_token":
			if c.Auth.Token == "" {
				return fmt.Errorf("auth.token is required for the bearer_token strategy")
			}
		case "api_key":
			if c.Auth.APIKey == "" {
				return fmt.Errorf("auth.api_key is required for the api_key strategy")
			}
		case "function":
			if c.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is required for the function strategy")
			}
		default:
			return fmt.Errorf("auth.strategy %q is not one of none, bearer_token, api_key, function", c.Auth.Strategy)
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}
