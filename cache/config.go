package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-household-state/internal/cacheinfra"
)

// Backend selects the Store implementation built by NewStore.
type Backend string

const (
	// BackendMemory keeps entries in process with sturdyc.
	BackendMemory Backend = "memory"
	// BackendBadger keeps entries on disk with badger.
	BackendBadger Backend = "badger"
	// BackendNone disables caching. Every read rebuilds.
	BackendNone Backend = "none"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend Backend
	// TTL is how long a cached state lives unless invalidated first.
	TTL time.Duration
	// Timeout bounds each individual store call.
	Timeout            time.Duration
	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
	BadgerPath         string
	BadgerInMemory     bool
	BadgerSyncWrites   bool
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return &cacheinfra.ConfigError{Field: "Timeout", Message: "must be greater than 0"}
	}

	switch c.Backend {
	case BackendNone:
		return nil
	case BackendMemory:
		return c.toInternal(nil).Validate()
	case BackendBadger:
		if c.TTL <= 0 {
			return &cacheinfra.ConfigError{Field: "TTL", Message: "must be greater than 0"}
		}
		return c.toInternal(nil).Badger.Validate()
	default:
		return &cacheinfra.ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
}

// NewStore constructs the Store selected by cfg.Backend. BackendNone returns
// a nil Store, which callers treat as "no cache". Stores that hold resources
// implement io.Closer.
func NewStore(cfg Config, logger *slog.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendMemory:
		store, err := cacheinfra.NewSturdycStore(cfg.toInternal(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendBadger:
		store, err := cacheinfra.NewBadgerStore(cfg.toInternal(logger))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}

func (c Config) toInternal(logger *slog.Logger) cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		Badger: cacheinfra.BadgerConfig{
			Path:       c.BadgerPath,
			InMemory:   c.BadgerInMemory,
			SyncWrites: c.BadgerSyncWrites,
			Logger:     logger,
		},
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:            BackendMemory,
		TTL:                cfg.TTL,
		Timeout:            2 * time.Second,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		BadgerPath:         cfg.Badger.Path,
		BadgerInMemory:     cfg.Badger.InMemory,
		BadgerSyncWrites:   cfg.Badger.SyncWrites,
	}
}
