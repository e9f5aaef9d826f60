// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// CORSOrigins is the allow-list of browser origins. Empty allows every
	// origin, which is only meant for development.
	CORSOrigins    []string      `yaml:"cors_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Pprof          bool          `yaml:"pprof"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	DrainDuration  time.Duration `yaml:"drain_duration"`
}

type StoreConfig struct {
	Type          string         `yaml:"type"`
	MaxConns      int            `yaml:"max_conns"`
	PurgeAfter    time.Duration  `yaml:"purge_after"`
	PurgeInterval time.Duration  `yaml:"purge_interval"`
	Redis         RedisConfig    `yaml:"redis"`
	SQLite        SQLiteConfig   `yaml:"sqlite"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	Burst          int  `yaml:"burst"`
}

type LogConfig struct {
	JSON    bool   `yaml:"json"`
	Debug   bool   `yaml:"debug"`
	Service string `yaml:"service"`
}

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3001,
			MaxBodyBytes:   1 << 20,
			RequestTimeout: 30 * time.Second,
			DrainDuration:  5 * time.Second,
		},
		Store: StoreConfig{
			Type:          StoreMemory,
			MaxConns:      10,
			PurgeInterval: time.Minute,
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			SQLite: SQLiteConfig{
				Path: "otm.db",
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 100,
			Burst:          20,
		},
		Log: LogConfig{
			Service: "otm-server",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is OK, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() error {
	// Server
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if err := envInt("PORT", &c.Server.Port); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("CORS_ORIGIN"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	if err := envInt64("MAX_BODY_BYTES", &c.Server.MaxBodyBytes); err != nil {
		return err
	}
	if err := envDuration("REQUEST_TIMEOUT", &c.Server.RequestTimeout); err != nil {
		return err
	}
	if err := envBool("PPROF", &c.Server.Pprof); err != nil {
		return err
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if err := envDuration("DRAIN_DURATION", &c.Server.DrainDuration); err != nil {
		return err
	}

	// Store
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if err := envInt("STORE_MAX_CONNS", &c.Store.MaxConns); err != nil {
		return err
	}
	if err := envDuration("PURGE_AFTER", &c.Store.PurgeAfter); err != nil {
		return err
	}
	if err := envDuration("PURGE_INTERVAL", &c.Store.PurgeInterval); err != nil {
		return err
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Store.Redis.Password = v
	}
	if err := envInt("REDIS_DB", &c.Store.Redis.DB); err != nil {
		return err
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Store.Postgres.DSN = v
	}

	// Rate limiting
	if err := envBool("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled); err != nil {
		return err
	}
	if err := envInt("RATE_LIMIT_REQUESTS", &c.RateLimit.RequestsPerMin); err != nil {
		return err
	}
	if err := envInt("RATE_LIMIT_BURST", &c.RateLimit.Burst); err != nil {
		return err
	}

	// Logging
	if err := envBool("LOG_JSON", &c.Log.JSON); err != nil {
		return err
	}
	if err := envBool("LOG_DEBUG", &c.Log.Debug); err != nil {
		return err
	}
	if v := os.Getenv("LOG_SERVICE"); v != "" {
		c.Log.Service = v
	}

	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}

	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	switch c.Store.Type {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required when store type is 'redis'")
		}
	case StoreSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required when store type is 'sqlite'")
		}
	case StorePostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("postgres dsn is required when store type is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be 'memory', 'redis', 'sqlite' or 'postgres')", c.Store.Type)
	}

	if c.Store.MaxConns < 1 {
		return fmt.Errorf("max_conns must be at least 1")
	}

	if c.Store.PurgeAfter < 0 {
		return fmt.Errorf("purge_after must not be negative")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin < 1 {
		return fmt.Errorf("requests_per_min must be at least 1 when rate limiting is enabled")
	}

	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s has invalid integer %q: %w", name, v, err)
	}
	*dst = n
	return nil
}

func envInt64(name string, dst *int64) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s has invalid integer %q: %w", name, v, err)
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s has invalid duration %q: %w", name, v, err)
	}
	*dst = d
	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s has invalid boolean %q: %w", name, v, err)
	}
	*dst = b
	return nil
}
