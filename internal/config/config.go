package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings shared by the CLI and the API.
// Only RemoveDuplicates changes pipeline semantics.
type Config struct {
	RemoveDuplicates bool `yaml:"remove_duplicates"`
	ParseWorkers     int  `yaml:"parse_workers"`

	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`

	APIPort     string `yaml:"api_port"`
	MetricsAddr string `yaml:"metrics_addr"`

	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`

	RateLimitPerSecond int `yaml:"rate_limit_per_second"`
	RateLimitPerDay    int `yaml:"rate_limit_per_day"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		ParseWorkers:       1,
		LogLevel:           "INFO",
		LogMaxAgeDays:      30,
		APIPort:            "8080",
		CacheTTL:           10 * time.Minute,
		RateLimitPerSecond: 10,
		RateLimitPerDay:    10000,
		NATSSubject:        "trajectory",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment variables. A .env file in the working directory is
// loaded into the environment first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.ParseWorkers < 1 {
		return fmt.Errorf("invalid parse_workers: %d (must be >= 1)", c.ParseWorkers)
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("invalid cache_ttl: %s", c.CacheTTL)
	}
	if c.RateLimitPerSecond < 0 || c.RateLimitPerDay < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error

	if cfg.RemoveDuplicates, err = envBool("REMOVE_DUPLICATES", cfg.RemoveDuplicates); err != nil {
		return err
	}
	if cfg.ParseWorkers, err = envInt("PARSE_WORKERS", cfg.ParseWorkers); err != nil {
		return err
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	if cfg.LogMaxAgeDays, err = envInt("LOG_MAX_AGE_DAYS", cfg.LogMaxAgeDays); err != nil {
		return err
	}

	cfg.APIPort = getEnv("API_PORT", cfg.APIPort)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)

	if cfg.CacheEnabled, err = envBool("CACHE_ENABLED", cfg.CacheEnabled); err != nil {
		return err
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, perr := time.ParseDuration(v)
		if perr != nil {
			return fmt.Errorf("invalid CACHE_TTL: %q", v)
		}
		cfg.CacheTTL = ttl
	}

	if cfg.RateLimitPerSecond, err = envInt("RATE_LIMIT_PER_SECOND", cfg.RateLimitPerSecond); err != nil {
		return err
	}
	if cfg.RateLimitPerDay, err = envInt("RATE_LIMIT_PER_DAY", cfg.RateLimitPerDay); err != nil {
		return err
	}

	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = getEnv("NATS_SUBJECT", cfg.NATSSubject)

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s: %q", key, v)
}
