// Package config loads runtime configuration from the environment, with an
// optional .env file, and validates it before anything is constructed.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-household-state/cache"
	"github.com/goliatone/go-household-state/storage/bunstore"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel slog.Level
	Database DatabaseConfig
	Cache    cache.Config
	State    StateConfig
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type StateConfig struct {
	LoadTimeout time.Duration
	Coalesce    bool
}

// Default returns the configuration used when no variable is set: a local
// sqlite file and the in-process cache.
func Default() Config {
	return Config{
		Env:      "local",
		LogLevel: slog.LevelInfo,
		Database: DatabaseConfig{
			Driver: bunstore.DriverSQLite,
			DSN:    "file:pantry.db?cache=shared",
		},
		Cache: cache.DefaultConfig(),
		State: StateConfig{
			LoadTimeout: 10 * time.Second,
		},
	}
}

// Load reads the configuration from the environment. A .env file in the
// working directory, or the file named by ENV_FILE, is loaded first and
// never overrides variables that are already set.
func Load() (Config, error) {
	if err := loadEnv(); err != nil {
		return Config{}, err
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching
// any .env file.
func FromEnv() (Config, error) {
	cfg := Default()

	cfg.Env = getEnv("APP_ENV", cfg.Env)

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)

	cfg.Cache.Backend = cache.Backend(strings.ToLower(getEnv("CACHE_BACKEND", string(cfg.Cache.Backend))))
	cfg.Cache.BadgerPath = getEnv("CACHE_BADGER_PATH", cfg.Cache.BadgerPath)

	var err error
	if cfg.Cache.TTL, err = parseDurationEnv("CACHE_TTL", cfg.Cache.TTL); err != nil {
		return cfg, err
	}
	if cfg.Cache.Timeout, err = parseDurationEnv("CACHE_TIMEOUT", cfg.Cache.Timeout); err != nil {
		return cfg, err
	}
	if cfg.Cache.Capacity, err = parseIntEnv("CACHE_CAPACITY", cfg.Cache.Capacity); err != nil {
		return cfg, err
	}
	if cfg.State.LoadTimeout, err = parseDurationEnv("STATE_LOAD_TIMEOUT", cfg.State.LoadTimeout); err != nil {
		return cfg, err
	}
	if cfg.State.Coalesce, err = parseBoolEnv("STATE_COALESCE", cfg.State.Coalesce); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid field of each section.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver,
			validation.Required,
			validation.In(bunstore.DriverSQLite, "sqlite3", bunstore.DriverPostgres, "postgresql", "pg").
				Error("must be sqlite or postgres"),
		),
		validation.Field(&c.Database.DSN, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	err = validation.ValidateStruct(&c.State,
		validation.Field(&c.State.LoadTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
	if err != nil {
		return fmt.Errorf("state config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return parsed, nil
}

func loadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
