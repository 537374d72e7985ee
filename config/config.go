package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bill tracker.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address   string        `mapstructure:"address"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// UpstreamConfig contains Congress.gov API settings.
type UpstreamConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PageLimit    int           `mapstructure:"page_limit"`
	MaxAggregate int           `mapstructure:"max_aggregate"`
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

func (u UpstreamConfig) Validate() error {
	if strings.TrimSpace(u.APIKey) == "" {
		return fmt.Errorf("upstream.api_key is required")
	}
	if strings.TrimSpace(u.BaseURL) == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	return nil
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend        string        `mapstructure:"backend"` // file or redis
	Dir            string        `mapstructure:"dir"`
	ListTTL        time.Duration `mapstructure:"list_ttl"`
	DetailTTL      time.Duration `mapstructure:"detail_ttl"`
	StaleRetention time.Duration `mapstructure:"stale_retention"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	Redis          RedisConfig   `mapstructure:"redis"`
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "file":
		if strings.TrimSpace(c.Dir) == "" {
			return fmt.Errorf("cache.dir is required for the file backend")
		}
	case "redis":
		return c.Redis.Validate()
	default:
		return fmt.Errorf("cache.backend must be file or redis, got %q", c.Backend)
	}
	return nil
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("cache.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("cache.redis.port required")
	}
	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// PaginationConfig controls page sizes served to clients.
type PaginationConfig struct {
	AllowedSizes []int `mapstructure:"allowed_sizes"`
	DefaultSize  int   `mapstructure:"default_size"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig contains Postgres connection settings. The engagement
// endpoints are disabled when no postgres is configured.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Configured reports whether any postgres settings were provided.
func (p PostgresConfig) Configured() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

// DSN builds a connection string from the individual fields unless a full
// URL was given.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(p.User), url.QueryEscape(p.Password), p.Host, p.Port, p.DBName, ssl)
}

func (p PostgresConfig) Validate() error {
	if !p.Configured() {
		return nil
	}
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RefreshConfig drives the background cache warmer.
type RefreshConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
	Query   string `mapstructure:"query"`
	Chamber string `mapstructure:"chamber"`
}

// LoadConfig loads config from file and the environment (BILLTRACKER_*).
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.token_ttl", "24h")
	viper.SetDefault("upstream.base_url", "https://api.congress.gov/v3")
	viper.SetDefault("upstream.timeout", "15s")
	viper.SetDefault("upstream.page_limit", 50)
	viper.SetDefault("upstream.max_aggregate", 250)
	viper.SetDefault("upstream.retries", 2)
	viper.SetDefault("upstream.retry_backoff", "500ms")
	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.dir", "./data/cache")
	viper.SetDefault("cache.list_ttl", "30m")
	viper.SetDefault("cache.detail_ttl", "30m")
	viper.SetDefault("cache.stale_retention", "24h")
	viper.SetDefault("cache.sweep_interval", "1h")
	viper.SetDefault("pagination.allowed_sizes", []int{10, 20, 50})
	viper.SetDefault("pagination.default_size", 10)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("refresh.enabled", false)
	viper.SetDefault("refresh.cron", "*/30 * * * *")
	viper.SetDefault("refresh.chamber", "both")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("BILLTRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A config file is optional; env vars and defaults can carry the whole
	// configuration.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Upstream.Validate(); err != nil {
		panic(err)
	}
	if err := config.Cache.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}
