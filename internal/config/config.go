package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Search index drivers.
const (
	DriverMeilisearch = "meilisearch"
	DriverRedis       = "redis"
	DriverValkey      = "valkey"
)

// Config holds the garden catalog configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	SearchIndex SearchIndexConfig `yaml:"search_index"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Search      SearchConfig      `yaml:"search"`
	Auth        AuthConfig        `yaml:"auth"`
	DOI         DOIConfig         `yaml:"doi"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the PostgreSQL pool settings.
type DatabaseConfig struct {
	DSN                string `yaml:"dsn"`
	MaxConns           int32  `yaml:"max_conns"`
	MinConns           int32  `yaml:"min_conns"`
	MaxConnLifetimeSec int    `yaml:"max_conn_lifetime_sec"`
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
	AutoMigrate        bool   `yaml:"auto_migrate"`
}

// SearchIndexConfig selects and configures the external search index.
type SearchIndexConfig struct {
	Driver      string            `yaml:"driver"` // meilisearch (default), redis, valkey
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
	Redis       RedisConfig       `yaml:"redis"`
}

// MeilisearchConfig holds Meilisearch connection settings.
type MeilisearchConfig struct {
	Host           string `yaml:"host"`
	APIKey         string `yaml:"api_key"`
	Index          string `yaml:"index"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// RedisConfig holds Redis/Valkey connection settings for the JSON projection.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	Index     string   `yaml:"index"`
}

// ReconcileConfig holds outbox worker and retry loop settings.
type ReconcileConfig struct {
	Workers          int     `yaml:"workers"`
	QueueSize        int     `yaml:"queue_size"`
	RetryIntervalSec int     `yaml:"retry_interval_sec"`
	MaxRetries       int     `yaml:"max_retries"`
	AttemptTimeout   int     `yaml:"attempt_timeout_sec"`
	RatePerSecond    float64 `yaml:"rate_per_second"` // 0 = unlimited
	Disabled         bool    `yaml:"disabled"`
}

// SearchConfig holds search pagination settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// AuthConfig holds identity resolution settings.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"api_keys"`
	JWT     JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig maps a static bearer key to an identity.
type APIKeyConfig struct {
	Key        string   `yaml:"key"`
	IdentityID string   `yaml:"identity_id"`
	Username   string   `yaml:"username"`
	Scopes     []string `yaml:"scopes"`
}

// JWTConfig enables HS256 bearer tokens when Secret is set.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// DOIConfig configures the DOI registration lookup. Empty ResolverURL disables it.
type DOIConfig struct {
	ResolverURL string `yaml:"resolver_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// Load reads configuration by environment name (local, dev, prod).
// CONFIG_PATH, when set, wins over the per-environment lookup.
func Load(env string) (Config, error) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return LoadFile(p)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates one YAML file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Database.MaxConnLifetimeSec <= 0 {
		c.Database.MaxConnLifetimeSec = 3600
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.SearchIndex.Driver == "" {
		c.SearchIndex.Driver = DriverMeilisearch
	}
	if c.SearchIndex.Meilisearch.Index == "" {
		c.SearchIndex.Meilisearch.Index = "gardens"
	}
	if c.SearchIndex.Meilisearch.PollIntervalMs <= 0 {
		c.SearchIndex.Meilisearch.PollIntervalMs = 50
	}
	if c.SearchIndex.Redis.KeyPrefix == "" {
		c.SearchIndex.Redis.KeyPrefix = "garden:"
	}
	if c.SearchIndex.Redis.Index == "" {
		c.SearchIndex.Redis.Index = "gardens"
	}
	if c.Reconcile.Workers <= 0 {
		c.Reconcile.Workers = 4
	}
	if c.Reconcile.QueueSize <= 0 {
		c.Reconcile.QueueSize = 256
	}
	if c.Reconcile.RetryIntervalSec <= 0 {
		c.Reconcile.RetryIntervalSec = 60
	}
	if c.Reconcile.MaxRetries <= 0 {
		c.Reconcile.MaxRetries = 3
	}
	if c.Reconcile.AttemptTimeout <= 0 {
		c.Reconcile.AttemptTimeout = 30
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 100
	}
	if c.DOI.TimeoutSec <= 0 {
		c.DOI.TimeoutSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds database.max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	switch c.SearchIndex.Driver {
	case DriverMeilisearch:
		if c.SearchIndex.Meilisearch.Host == "" {
			return fmt.Errorf("search_index.meilisearch.host is required")
		}
	case DriverRedis, DriverValkey:
		if len(c.SearchIndex.Redis.Addrs) == 0 {
			return fmt.Errorf("search_index.redis.addrs is required")
		}
	default:
		return fmt.Errorf("search_index.driver must be %q, %q or %q, got %q",
			DriverMeilisearch, DriverRedis, DriverValkey, c.SearchIndex.Driver)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Reconcile.RatePerSecond < 0 {
		return fmt.Errorf("reconcile.rate_per_second must be >= 0, got %v", c.Reconcile.RatePerSecond)
	}
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("auth.api_keys[%d].key is required", i)
		}
		if _, err := uuid.Parse(k.IdentityID); err != nil {
			return fmt.Errorf("auth.api_keys[%d].identity_id must be a UUID: %w", i, err)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
