package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "development environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "development"},
			},
			expected: true,
		},
		{
			name: "debug gin mode",
			config: &Config{
				Server: ServerConfig{GinMode: "debug"},
			},
			expected: true,
		},
		{
			name: "production environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "production"},
			},
			expected: false,
		},
		{
			name: "release mode",
			config: &Config{
				Server: ServerConfig{GinMode: "release", AppEnv: "production"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.IsDevelopment()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "production environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "production"},
			},
			expected: true,
		},
		{
			name: "development environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "development"},
			},
			expected: false,
		},
		{
			name: "staging environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "staging"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.IsProduction()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", AppEnv: "production", BaseURL: "https://tyebliya.com"},
		Database: DatabaseConfig{URL: "postgres://localhost/tyebliya"},
		RateLimit: RateLimitConfig{
			MaxRequests:   3,
			WindowSeconds: 60,
			SweepSeconds:  300,
			Backend:       RateLimitBackendMemory,
		},
		Waitlist: WaitlistConfig{IPHashSalt: "pepper"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "missing database url",
			mutate:   func(c *Config) { c.Database.URL = "" },
			errorMsg: "DATABASE_URL is required",
		},
		{
			name:     "zero max requests",
			mutate:   func(c *Config) { c.RateLimit.MaxRequests = 0 },
			errorMsg: "RATE_LIMIT_MAX must be positive",
		},
		{
			name:     "negative window",
			mutate:   func(c *Config) { c.RateLimit.WindowSeconds = -1 },
			errorMsg: "RATE_LIMIT_WINDOW_SECONDS must be positive",
		},
		{
			name:     "zero sweep",
			mutate:   func(c *Config) { c.RateLimit.SweepSeconds = 0 },
			errorMsg: "RATE_LIMIT_SWEEP_SECONDS must be positive",
		},
		{
			name:     "unknown backend",
			mutate:   func(c *Config) { c.RateLimit.Backend = "memcached" },
			errorMsg: "unsupported RATE_LIMIT_BACKEND",
		},
		{
			name:     "redis without url",
			mutate:   func(c *Config) { c.RateLimit.Backend = RateLimitBackendRedis },
			errorMsg: "REDIS_URL is required",
		},
		{
			name: "redis with url",
			mutate: func(c *Config) {
				c.RateLimit.Backend = RateLimitBackendRedis
				c.RateLimit.RedisURL = "redis://localhost:6379/0"
			},
		},
		{
			name:     "production without salt",
			mutate:   func(c *Config) { c.Waitlist.IPHashSalt = "" },
			errorMsg: "IP_HASH_SALT is required in production",
		},
		{
			name: "development without salt",
			mutate: func(c *Config) {
				c.Server.AppEnv = "development"
				c.Waitlist.IPHashSalt = ""
			},
		},
		{
			name:     "profiling without endpoint",
			mutate:   func(c *Config) { c.Profiling.Enabled = true },
			errorMsg: "O11Y_PROFILING_ENDPOINT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := validConfig()
	cfg.Waitlist.StatsCacheTTLSeconds = 30

	assert.Equal(t, time.Minute, cfg.RateLimitWindow())
	assert.Equal(t, 5*time.Minute, cfg.RateLimitSweepInterval())
	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL())
	assert.False(t, cfg.ExportEnabled())
}

func chdirTemp(t *testing.T) {
	t.Helper()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })
}

func TestLoad_WithDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tyebliya")
	t.Setenv("IP_HASH_SALT", "pepper")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, "https://tyebliya.com", cfg.Server.BaseURL)
	assert.Equal(t, []string{"https://tyebliya.com", "https://www.tyebliya.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 60, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, 300, cfg.RateLimit.SweepSeconds)
	assert.Equal(t, RateLimitBackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, "web_v2", cfg.Waitlist.Source)
	assert.Equal(t, 200, cfg.Waitlist.Capacity)
	assert.Equal(t, "", cfg.Turnstile.SecretKey)
	assert.Contains(t, cfg.Turnstile.VerifyURL, "challenges.cloudflare.com")
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "development")
	t.Setenv("BASE_URL", "https://staging.tyebliya.com/")
	t.Setenv("ALLOWED_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("DATABASE_URL", "postgres://localhost/tyebliya")
	t.Setenv("DATABASE_ACCESS_KEY", "service-key")
	t.Setenv("TURNSTILE_SECRET_KEY", "turnstile-secret")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("WAITLIST_CREATED_TRIGGER_URL", "https://hooks.example/waitlist")
	t.Setenv("EXPORT_BUCKET", "tyebliya-exports")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "https://staging.tyebliya.com", cfg.Server.BaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "service-key", cfg.Database.AccessKey)
	assert.Equal(t, "turnstile-secret", cfg.Turnstile.SecretKey)
	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, RateLimitBackendRedis, cfg.RateLimit.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.RateLimit.RedisURL)
	assert.Equal(t, "https://hooks.example/waitlist", cfg.EventTriggers.WaitlistCreatedTriggerURL)
	assert.True(t, cfg.ExportEnabled())
}

func TestLoad_ValidationFailure(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}
