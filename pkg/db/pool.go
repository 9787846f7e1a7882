package db

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tyebliya/waitlist-api/config"
)

// PoolConfig contains database pool configuration parameters
type PoolConfig struct {
	URL string
	// AccessKey replaces the password embedded in URL when set
	AccessKey string
	// CACertPath points to a PEM bundle used when the URL asks for TLS
	CACertPath string
	MaxConns   int32
	MinConns   int32
}

// PoolConfigFrom maps the DATABASE_* settings onto a PoolConfig
func PoolConfigFrom(cfg config.DatabaseConfig) PoolConfig {
	return PoolConfig{
		URL:        cfg.URL,
		AccessKey:  cfg.AccessKey,
		CACertPath: cfg.CACertPath,
		MaxConns:   cfg.MaxConns,
		MinConns:   cfg.MinConns,
	}
}

// configureTLS returns nil when the URL does not request TLS or no CA bundle is configured,
// in which case pgx applies the sslmode from the URL on its own.
func configureTLS(databaseURL, caCertPath string) (*tls.Config, error) {
	if !containsSSLMode(databaseURL) || caCertPath == "" {
		return nil, nil
	}

	caPEM, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate from %s: %w", caCertPath, err)
	}

	rootCertPool := x509.NewCertPool()
	if ok := rootCertPool.AppendCertsFromPEM(caPEM); !ok {
		return nil, fmt.Errorf("failed to append CA certificate to pool")
	}

	tlsConfig := &tls.Config{
		RootCAs:    rootCertPool,
		MinVersion: tls.VersionTLS12,
	}

	if serverName := os.Getenv("DATABASE_TLS_SERVER_NAME"); serverName != "" {
		tlsConfig.ServerName = serverName
	}

	return tlsConfig, nil
}

func containsSSLMode(url string) bool {
	return strings.Contains(url, "sslmode=require") ||
		strings.Contains(url, "sslmode=verify-full") ||
		strings.Contains(url, "sslmode=verify-ca")
}

// connConfig parses the URL and applies the access key and TLS settings shared by
// the pool and the migration runner.
func connConfig(poolCfg PoolConfig) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(poolCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if err := applyConnSettings(cfg, poolCfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyConnSettings(cfg *pgx.ConnConfig, poolCfg PoolConfig) error {
	if poolCfg.AccessKey != "" {
		cfg.Password = poolCfg.AccessKey
	}

	tlsConfig, err := configureTLS(poolCfg.URL, poolCfg.CACertPath)
	if err != nil {
		return fmt.Errorf("failed to configure TLS: %w", err)
	}
	if tlsConfig != nil {
		cfg.TLSConfig = tlsConfig
	}
	return nil
}

// NewPool creates a PostgreSQL connection pool and verifies it with a ping.
//
// Pool settings: HealthCheckPeriod 30s, MaxConnLifetime 1h, MaxConnIdleTime 30m.
func NewPool(ctx context.Context, poolCfg PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(poolCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if err := applyConnSettings(config.ConnConfig, poolCfg); err != nil {
		return nil, err
	}

	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	config.HealthCheckPeriod = 30 * time.Second
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Close gracefully closes the connection pool
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
