package db

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config describes the location record database. URL, when set, replaces the
// individual connection fields.
type Config struct {
	URL      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MinConns int32
	MaxConns int32

	// SimpleProtocol disables prepared statements for transaction poolers
	SimpleProtocol   bool
	StatementTimeout time.Duration
	AppName          string
}

// LoadConfigFromEnv reads DATABASE_URL or the DB_* variables
func LoadConfigFromEnv() *Config {
	return &Config{
		URL:              os.Getenv("DATABASE_URL"),
		Host:             getEnv("DB_HOST", "localhost"),
		Port:             getEnvInt("DB_PORT", 5432),
		Database:         getEnv("DB_NAME", "trackmap"),
		User:             getEnv("DB_USER", "trackmap"),
		Password:         os.Getenv("DB_PASSWORD"),
		SSLMode:          getEnv("DB_SSLMODE", "disable"),
		MinConns:         int32(getEnvInt("DB_MIN_CONNS", 1)),
		MaxConns:         int32(getEnvInt("DB_MAX_CONNS", 4)),
		SimpleProtocol:   getEnvBool("DB_SIMPLE_PROTOCOL", false),
		StatementTimeout: time.Duration(getEnvInt("DB_STATEMENT_TIMEOUT_MS", 30000)) * time.Millisecond,
		AppName:          getEnv("DB_APP_NAME", "trackmap"),
	}
}

// Enabled reports whether a database was configured at all
func (c *Config) Enabled() bool {
	return c.URL != "" || os.Getenv("DB_HOST") != ""
}

// ConnString renders the config as a postgres URL
func (c *Config) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// PoolConfig builds the pool settings. Sessions are read-only: the service
// never writes location records.
func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.ConnString())
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	if c.MinConns > 0 {
		pc.MinConns = c.MinConns
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	pc.MaxConnIdleTime = 15 * time.Minute
	pc.HealthCheckPeriod = time.Minute

	params := pc.ConnConfig.RuntimeParams
	params["application_name"] = c.AppName
	params["default_transaction_read_only"] = "on"
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}

	if c.SimpleProtocol {
		pc.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	return pc, nil
}

// Connect opens the pool and waits for one successful ping
func Connect(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	pc, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return pool, nil
}

// HealthCheck pings the pool and confirms the location_record table is readable
func HealthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("database connection not initialized")
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var exists bool
	err := pool.QueryRow(ctx, "SELECT to_regclass('public.location_record') IS NOT NULL").Scan(&exists)
	if err != nil {
		return fmt.Errorf("schema check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("table location_record not found")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}
