package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Rate limit backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Turnstile     TurnstileConfig
	RateLimit     RateLimitConfig
	Waitlist      WaitlistConfig
	EventTriggers EventTriggersConfig
	Export        ExportConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	BaseURL        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL        string
	AccessKey  string
	CACertPath string
	MaxConns   int32
	MinConns   int32
}

type TurnstileConfig struct {
	SecretKey string
	VerifyURL string
}

type RateLimitConfig struct {
	MaxRequests   int
	WindowSeconds int
	SweepSeconds  int
	Backend       string
	RedisURL      string
}

type WaitlistConfig struct {
	Source               string
	Capacity             int
	StatsCacheTTLSeconds int
	IPHashSalt           string
}

type EventTriggersConfig struct {
	WaitlistCreatedTriggerURL string
}

type ExportConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type LoggingConfig struct {
	Level string
	Dir   string
}

type ObservabilityConfig struct {
	ExporterEndpoint  string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("BASE_URL", "https://tyebliya.com")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://tyebliya.com,https://www.tyebliya.com")
	v.SetDefault("DATABASE_MAX_CONNS", 10)
	v.SetDefault("DATABASE_MIN_CONNS", 1)
	v.SetDefault("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("RATE_LIMIT_MAX", 3)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_SWEEP_SECONDS", 300)
	v.SetDefault("RATE_LIMIT_BACKEND", RateLimitBackendMemory)
	v.SetDefault("WAITLIST_SOURCE", "web_v2")
	v.SetDefault("WAITLIST_CAPACITY", 200)
	v.SetDefault("STATS_CACHE_TTL", 60)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "")
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "")
	v.SetDefault("O11Y_SERVICE_NAME", "waitlist-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "tyebliya")
	v.SetDefault("O11Y_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "waitlist-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,alloc_objects,goroutines,mutex,block")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // .env is optional

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:        v.GetString("DATABASE_URL"),
			AccessKey:  v.GetString("DATABASE_ACCESS_KEY"),
			CACertPath: v.GetString("DATABASE_CA_CERT"),
			MaxConns:   v.GetInt32("DATABASE_MAX_CONNS"),
			MinConns:   v.GetInt32("DATABASE_MIN_CONNS"),
		},
		Turnstile: TurnstileConfig{
			SecretKey: v.GetString("TURNSTILE_SECRET_KEY"),
			VerifyURL: v.GetString("TURNSTILE_VERIFY_URL"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   v.GetInt("RATE_LIMIT_MAX"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			SweepSeconds:  v.GetInt("RATE_LIMIT_SWEEP_SECONDS"),
			Backend:       strings.ToLower(strings.TrimSpace(v.GetString("RATE_LIMIT_BACKEND"))),
			RedisURL:      v.GetString("REDIS_URL"),
		},
		Waitlist: WaitlistConfig{
			Source:               v.GetString("WAITLIST_SOURCE"),
			Capacity:             v.GetInt("WAITLIST_CAPACITY"),
			StatsCacheTTLSeconds: v.GetInt("STATS_CACHE_TTL"),
			IPHashSalt:           v.GetString("IP_HASH_SALT"),
		},
		EventTriggers: EventTriggersConfig{
			WaitlistCreatedTriggerURL: v.GetString("WAITLIST_CREATED_TRIGGER_URL"),
		},
		Export: ExportConfig{
			Bucket:          v.GetString("EXPORT_BUCKET"),
			Endpoint:        v.GetString("EXPORT_ENDPOINT"),
			Region:          v.GetString("EXPORT_REGION"),
			AccessKeyID:     v.GetString("EXPORT_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("EXPORT_SECRET_ACCESS_KEY"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			Dir:   v.GetString("LOG_DIR"),
		},
		Observability: ObservabilityConfig{
			ExporterEndpoint:  v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}

	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if c.RateLimit.SweepSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_SWEEP_SECONDS must be positive")
	}
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_BACKEND is redis")
		}
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND: %q", c.RateLimit.Backend)
	}

	if c.IsProduction() && c.Waitlist.IPHashSalt == "" {
		return fmt.Errorf("IP_HASH_SALT is required in production")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.AppEnv == "production"
}

// RateLimitWindow is the fixed window length
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

// RateLimitSweepInterval is how often stale rate limit entries are evicted
func (c *Config) RateLimitSweepInterval() time.Duration {
	return time.Duration(c.RateLimit.SweepSeconds) * time.Second
}

// StatsCacheTTL is how long the stats response is cached
func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.Waitlist.StatsCacheTTLSeconds) * time.Second
}

// ExportEnabled reports whether an export bucket is configured
func (c *Config) ExportEnabled() bool {
	return c.Export.Bucket != ""
}
