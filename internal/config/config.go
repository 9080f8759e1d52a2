package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the metasync service.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	ClickHouse    ClickHouseConfig
	Store         StoreConfig
	Meta          MetaConfig
	Sync          SyncConfig
	ResponseCache ResponseCacheConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Log           LogConfig
	Metrics       MetricsConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

// DatabaseConfig describes the PostgreSQL cluster holding one database per
// tenant. The tenant database name is DBPrefix followed by the tenant ID.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBPrefix string
	SSLMode  string
	MaxConns int
	MinConns int
	// MaxTenants bounds the number of tenant pools kept open.
	MaxTenants int
}

// DSN returns the PostgreSQL connection string for a tenant database.
func (d DatabaseConfig) DSN(tenant string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBPrefix, tenant, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ClickHouseConfig struct {
	Addr     []string
	Database string
	User     string
	Password string
}

// StoreConfig selects the day metrics backend.
type StoreConfig struct {
	// Backend is one of "postgres", "clickhouse" or "memory".
	Backend string
	// Timeout bounds every store call.
	Timeout time.Duration
}

// MetaConfig configures the Meta Graph API client.
type MetaConfig struct {
	BaseURL       string
	APIVersion    string
	HTTPTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// SyncConfig configures bulk backfill jobs.
type SyncConfig struct {
	// Delay is the pause between consecutive external calls.
	Delay time.Duration
	// MaxDays caps the number of target days per job.
	MaxDays int
}

// ResponseCacheConfig configures the HTTP response cache.
type ResponseCacheConfig struct {
	// Backend is one of "memory", "redis" or "none".
	Backend string
	TTL     time.Duration
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("METASYNC_HTTP_ADDR", ":8080"),
			Env:             getEnv("METASYNC_ENV", "development"),
			ShutdownTimeout: getDurationEnv("METASYNC_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:       getEnv("METASYNC_DB_HOST", "localhost"),
			Port:       getIntEnv("METASYNC_DB_PORT", 5432),
			User:       getEnv("METASYNC_DB_USER", "metasync"),
			Password:   getEnv("METASYNC_DB_PASSWORD", "metasync_secret"),
			DBPrefix:   getEnv("METASYNC_DB_PREFIX", "tenant_"),
			SSLMode:    getEnv("METASYNC_DB_SSLMODE", "disable"),
			MaxConns:   getIntEnv("METASYNC_DB_MAX_CONNS", 10),
			MinConns:   getIntEnv("METASYNC_DB_MIN_CONNS", 1),
			MaxTenants: getIntEnv("METASYNC_DB_MAX_TENANTS", 64),
		},
		Redis: RedisConfig{
			Addr:     getEnv("METASYNC_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("METASYNC_REDIS_PASSWORD", ""),
			DB:       getIntEnv("METASYNC_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getSliceEnv("METASYNC_CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			Database: getEnv("METASYNC_CLICKHOUSE_DB", "metasync"),
			User:     getEnv("METASYNC_CLICKHOUSE_USER", "default"),
			Password: getEnv("METASYNC_CLICKHOUSE_PASSWORD", ""),
		},
		Store: StoreConfig{
			Backend: getEnv("METASYNC_STORE_BACKEND", "postgres"),
			Timeout: getDurationEnv("METASYNC_STORE_TIMEOUT", 5*time.Second),
		},
		Meta: MetaConfig{
			BaseURL:       getEnv("METASYNC_META_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getEnv("METASYNC_META_API_VERSION", "v19.0"),
			HTTPTimeout:   getDurationEnv("METASYNC_META_HTTP_TIMEOUT", 30*time.Second),
			RetryAttempts: getIntEnv("METASYNC_META_RETRY_ATTEMPTS", 3),
			RetryDelay:    getDurationEnv("METASYNC_META_RETRY_DELAY", 2*time.Second),
		},
		Sync: SyncConfig{
			Delay:   getDurationEnv("METASYNC_SYNC_DELAY", 2*time.Second),
			MaxDays: getIntEnv("METASYNC_SYNC_MAX_DAYS", 30),
		},
		ResponseCache: ResponseCacheConfig{
			Backend: getEnv("METASYNC_RESPONSE_CACHE", "memory"),
			TTL:     getDurationEnv("METASYNC_RESPONSE_CACHE_TTL", time.Minute),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("METASYNC_AUTH_ENABLED", true),
			MasterKey: getEnv("METASYNC_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("METASYNC_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("METASYNC_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("METASYNC_RATE_LIMIT_RPS", 50),
			Burst:   getIntEnv("METASYNC_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("METASYNC_LOG_LEVEL", "info"),
			Format: getEnv("METASYNC_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("METASYNC_METRICS_ENABLED", true),
			Path:      getEnv("METASYNC_METRICS_PATH", "/metrics"),
			Namespace: getEnv("METASYNC_METRICS_NAMESPACE", "metasync"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("METASYNC_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Store.Backend {
	case "postgres", "clickhouse", "memory":
	default:
		return fmt.Errorf("unknown METASYNC_STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.ResponseCache.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("unknown METASYNC_RESPONSE_CACHE %q", c.ResponseCache.Backend)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("METASYNC_STORE_TIMEOUT must be positive")
	}
	if c.Sync.MaxDays <= 0 {
		return fmt.Errorf("METASYNC_SYNC_MAX_DAYS must be positive")
	}
	if c.Sync.Delay < 0 {
		return fmt.Errorf("METASYNC_SYNC_DELAY must not be negative")
	}
	if c.Meta.RetryAttempts < 1 {
		return fmt.Errorf("METASYNC_META_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
