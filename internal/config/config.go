package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the meiligate server configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
	Auth        AuthConfig        `yaml:"auth"`
	Index       IndexConfig       `yaml:"index"`
	Documents   DocumentsConfig   `yaml:"documents"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds the façade's own bearer keys. Empty means open.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyMB       int `yaml:"max_body_mb"`
}

// MeilisearchConfig holds client and task-wait settings.
// The connection itself comes from the environment, see ResolveConnection.
type MeilisearchConfig struct {
	DotenvPath            string `yaml:"dotenv_path"`
	RequestTimeoutSec     int    `yaml:"request_timeout_sec"`
	MaxIdleConns          int    `yaml:"max_idle_conns"`
	TaskWaitTimeoutSec    int    `yaml:"task_wait_timeout_sec"`
	TaskPollIntervalMs    int    `yaml:"task_poll_interval_ms"`
	HealthCheckTimeoutSec int    `yaml:"health_check_timeout_sec"`
}

// IndexConfig holds index route policy.
type IndexConfig struct {
	// EmptyListNotFound answers GET /indexes with 404 when there are no indexes.
	EmptyListNotFound bool `yaml:"empty_list_not_found"`
	DefaultPageSize   int  `yaml:"default_page_size"`
}

// DocumentsConfig holds document listing and batching settings.
type DocumentsConfig struct {
	DefaultPageSize   int `yaml:"default_page_size"`
	MaxPayloadSizeMiB int `yaml:"max_payload_size_mib"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyMB <= 0 {
		c.HTTP.MaxBodyMB = 512
	}
	if c.Meilisearch.DotenvPath == "" {
		c.Meilisearch.DotenvPath = ".env"
	}
	if c.Meilisearch.RequestTimeoutSec <= 0 {
		c.Meilisearch.RequestTimeoutSec = 30
	}
	if c.Meilisearch.MaxIdleConns <= 0 {
		c.Meilisearch.MaxIdleConns = 32
	}
	if c.Meilisearch.TaskWaitTimeoutSec <= 0 {
		c.Meilisearch.TaskWaitTimeoutSec = 30
	}
	if c.Meilisearch.TaskPollIntervalMs <= 0 {
		c.Meilisearch.TaskPollIntervalMs = 50
	}
	if c.Meilisearch.HealthCheckTimeoutSec <= 0 {
		c.Meilisearch.HealthCheckTimeoutSec = 3
	}
	if c.Index.DefaultPageSize <= 0 {
		c.Index.DefaultPageSize = 1000
	}
	if c.Documents.DefaultPageSize <= 0 {
		c.Documents.DefaultPageSize = 20
	}
	if c.Documents.MaxPayloadSizeMiB <= 0 {
		c.Documents.MaxPayloadSizeMiB = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Meilisearch.TaskPollIntervalMs > c.Meilisearch.TaskWaitTimeoutSec*1000 {
		return fmt.Errorf(
			"meilisearch.task_poll_interval_ms (%d) must not exceed task_wait_timeout_sec (%d)",
			c.Meilisearch.TaskPollIntervalMs, c.Meilisearch.TaskWaitTimeoutSec,
		)
	}
	if c.Documents.MaxPayloadSizeMiB > c.HTTP.MaxBodyMB {
		return fmt.Errorf(
			"documents.max_payload_size_mib (%d) must not exceed http.max_body_mb (%d)",
			c.Documents.MaxPayloadSizeMiB, c.HTTP.MaxBodyMB,
		)
	}
	for i, k := range c.Auth.APIKeys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("auth.api_keys[%d] must not be blank", i)
		}
	}
	return nil
}

// TaskWaitTimeout is the bound on awaiting a Meilisearch task.
func (c *Config) TaskWaitTimeout() time.Duration {
	return time.Duration(c.Meilisearch.TaskWaitTimeoutSec) * time.Second
}

// TaskPollInterval is the delay between task status polls.
func (c *Config) TaskPollInterval() time.Duration {
	return time.Duration(c.Meilisearch.TaskPollIntervalMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
