package cacheinfra

import (
	"log/slog"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the settings shared by the cache store implementations.
type Config struct {
	// Capacity defines the maximum number of entries that the in-process
	// store can hold. Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the upper bound on how long any entry lives. Set calls may ask
	// for a shorter TTL but never a longer one. Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration

	// Badger configures the persistent store. Ignored by the in-process store.
	Badger BadgerConfig
}

// BadgerConfig configures the badger backed store.
type BadgerConfig struct {
	// Path is the directory for the database files.
	// Required unless InMemory is true.
	Path string

	// InMemory keeps the database in memory only. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every write. Cached state can always be rebuilt,
	// so this is off by default.
	SyncWrites bool

	// Logger receives badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks the settings used by the in-process store.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// Validate checks the persistent store settings.
func (c BadgerConfig) Validate() error {
	if !c.InMemory && c.Path == "" {
		return &ConfigError{Field: "Badger.Path", Message: "is required unless InMemory is set"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
