package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
)

// File names looked up in the working directory.
const (
	FileName    = ".paymentsmcp.yaml"
	AltFileName = ".paymentsmcp.yml"
	DotEnvName  = ".env"
)

// Defaults.
const (
	DefaultDatabase   = "test"
	DefaultCollection = "payments"
	DefaultTransport  = "stdio"
	DefaultLogLevel   = "info"
)

// Config is the complete paymentsmcp configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" json:"store"`
	Server ServerConfig `yaml:"server" json:"server"`
}

// StoreConfig configures the MongoDB payment store.
type StoreConfig struct {
	// URI is the MongoDB connection string. Required.
	URI        string `yaml:"uri" json:"uri" env:"MONGODB_URI"`
	Database   string `yaml:"database" json:"database" env:"PAYMENTSMCP_DATABASE"`
	Collection string `yaml:"collection" json:"collection" env:"PAYMENTSMCP_COLLECTION"`

	// ServerSelectionTimeout overrides the driver default when non-zero.
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" json:"server_selection_timeout" env:"PAYMENTSMCP_SERVER_SELECTION_TIMEOUT"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport" env:"PAYMENTSMCP_TRANSPORT"`
	LogLevel  string `yaml:"log_level" json:"log_level" env:"PAYMENTSMCP_LOG_LEVEL"`
	LogFile   string `yaml:"log_file" json:"log_file" env:"PAYMENTSMCP_LOG_FILE"`
}

// NewConfig returns a configuration with defaults applied.
func NewConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Database:   DefaultDatabase,
			Collection: DefaultCollection,
		},
		Server: ServerConfig{
			Transport: DefaultTransport,
			LogLevel:  DefaultLogLevel,
		},
	}
}

// Resolve layers every configuration source for dir without validating the
// result, so doctor and config show still work on broken setups. Callers
// that need a usable config follow up with Validate.
//
// Precedence, lowest to highest:
//  1. Defaults
//  2. Project config (.paymentsmcp.yaml)
//  3. .env file
//  4. Process environment
func Resolve(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	environ, err := environment(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(environ); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{FileName, AltFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}

	// No config file is fine - use defaults
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return perrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	// Decoding into c keeps defaults for keys the file omits.
	if err := yaml.Unmarshal(data, c); err != nil {
		return perrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// environment merges dir/.env under the process environment. Variables that
// are already set win over the file.
func environment(dir string) (map[string]string, error) {
	merged := make(map[string]string)

	path := filepath.Join(dir, DotEnvName)
	if _, err := os.Stat(path); err == nil {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, perrors.ConfigError("failed to parse .env file", err).WithDetail("path", path)
		}
		for k, v := range values {
			merged[k] = v
		}
	}

	for k, v := range env.ToMap(os.Environ()) {
		merged[k] = v
	}
	return merged, nil
}

func (c *Config) applyEnv(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return perrors.ConfigError("failed to parse environment", err)
	}
	return nil
}

// Validate checks the resolved configuration. A missing connection string is
// reported as ERR_101_CONFIG_MISSING_URI.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.URI) == "" {
		return perrors.MissingURIError()
	}
	if c.Store.Database == "" {
		return perrors.ConfigError("store.database must not be empty", nil)
	}
	if c.Store.Collection == "" {
		return perrors.ConfigError("store.collection must not be empty", nil)
	}
	if c.Store.ServerSelectionTimeout < 0 {
		return perrors.ConfigError(
			fmt.Sprintf("store.server_selection_timeout must be non-negative, got %s", c.Store.ServerSelectionTimeout), nil)
	}

	if !strings.EqualFold(c.Server.Transport, DefaultTransport) {
		return perrors.ConfigError(
			fmt.Sprintf("server.transport must be 'stdio', got %s", c.Server.Transport), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return perrors.ConfigError(
			fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}

	return nil
}

// Redacted returns a copy safe to print: URI passwords are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Store.URI = RedactURI(c.Store.URI)
	return &out
}

// RedactURI masks the password in a connection string. Strings that do not
// parse as URLs are masked entirely.
func RedactURI(uri string) string {
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "<redacted>"
	}
	return u.Redacted()
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteYAML saves the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
