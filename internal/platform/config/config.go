// Package config loads service settings from an optional YAML file, an
// optional .env file, and the process environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

type Config struct {
	Port             string        `yaml:"port"`
	DBDriver         string        `yaml:"db_driver"`
	DatabaseURL      string        `yaml:"database_url"`
	RedisURL         string        `yaml:"redis_url"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	SolverURL        string        `yaml:"solver_url"`
	SolverTimeBudget time.Duration `yaml:"solver_time_budget"`
	StoreTimeout     time.Duration `yaml:"store_timeout"`
	SingleFlight     bool          `yaml:"solve_single_flight"`
	RateRPS          float64       `yaml:"rate_rps"`
	RateBurst        int           `yaml:"rate_burst"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	SeedPath         string        `yaml:"seed_path"`
}

func Defaults() Config {
	return Config{
		Port:             "8080",
		CacheTTL:         10 * time.Minute,
		SolverTimeBudget: time.Second,
		StoreTimeout:     5 * time.Second,
		SingleFlight:     true,
		RateRPS:          20,
		RateBurst:        40,
		LogLevel:         "info",
		LogFormat:        "json",
		ShutdownTimeout:  10 * time.Second,
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then applies
// environment overrides and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load config: read .env: %w", err)
	}

	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("load config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = Get("PORT", cfg.Port)
	cfg.DBDriver = Get("DB_DRIVER", cfg.DBDriver)
	cfg.DatabaseURL = Get("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = Get("REDIS_URL", cfg.RedisURL)
	cfg.SolverURL = Get("SOLVER_URL", cfg.SolverURL)
	cfg.LogLevel = Get("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = Get("LOG_FORMAT", cfg.LogFormat)
	cfg.SeedPath = Get("SEED_PATH", cfg.SeedPath)

	var err error
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", cfg.CacheTTL); err != nil {
		return err
	}
	if cfg.SolverTimeBudget, err = getDuration("SOLVER_TIME_BUDGET", cfg.SolverTimeBudget); err != nil {
		return err
	}
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", cfg.StoreTimeout); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.SingleFlight, err = getBool("SOLVE_SINGLE_FLIGHT", cfg.SingleFlight); err != nil {
		return err
	}
	if cfg.RateRPS, err = getFloat("RATE_RPS", cfg.RateRPS); err != nil {
		return err
	}
	if cfg.RateBurst, err = getInt("RATE_BURST", cfg.RateBurst); err != nil {
		return err
	}

	return nil
}

func (c *Config) normalize() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver == "" {
		c.DBDriver = DriverMemory
		if strings.TrimSpace(c.DatabaseURL) != "" {
			c.DBDriver = DriverPostgres
		}
	}

	switch c.DBDriver {
	case DriverMemory:
	case DriverPostgres, DriverMySQL:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("load config: DATABASE_URL is required for db driver %q", c.DBDriver)
		}
	default:
		return fmt.Errorf("load config: unknown db driver %q", c.DBDriver)
	}

	if c.SolverTimeBudget <= 0 {
		return errors.New("load config: SOLVER_TIME_BUDGET must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("load config: STORE_TIMEOUT must be positive")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("load config: PORT must not be empty")
	}

	return nil
}

// Get returns the trimmed environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("load config: %s: %w", key, err)
	}
	return b, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	return n, nil
}
