package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-household-state/cache"
	"github.com/goliatone/go-household-state/config"
	"github.com/goliatone/go-household-state/state"
	"github.com/goliatone/go-household-state/storage/bunstore"
	"github.com/uptrace/bun"
)

// Container owns the long lived components of the engine: the database
// handle, the cache store, the state manager and the invalidating
// repositories. Everything is built eagerly by NewContainer and released by
// Close.
type Container struct {
	config config.Config
	logger *slog.Logger

	db         *bun.DB
	store      *bunstore.Store
	cacheStore cache.Store
	keys       cache.KeySerializer
	manager    *state.Manager
	repos      bunstore.Repositories
}

// NewContainer opens the database and cache store described by cfg and wires
// the manager over them. A nil logger falls back to slog.Default. Anything
// opened before a failure is closed again.
func NewContainer(cfg config.Config, logger *slog.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bunstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	cacheStore, err := cache.NewStore(cfg.Cache, logger.With("component", "cache"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache store: %w", err)
	}

	keys := cache.NewDefaultKeySerializer()
	store := bunstore.New(db)
	manager := state.NewManager(store, cacheStore, state.Options{
		TTL:          cfg.Cache.TTL,
		CacheTimeout: cfg.Cache.Timeout,
		LoadTimeout:  cfg.State.LoadTimeout,
		Coalesce:     cfg.State.Coalesce,
		Keys:         keys,
		Logger:       logger,
	})

	return &Container{
		config:     cfg,
		logger:     logger,
		db:         db,
		store:      store,
		cacheStore: cacheStore,
		keys:       keys,
		manager:    manager,
		repos:      bunstore.NewRepositories(db).Invalidating(manager, logger),
	}, nil
}

// NewLogger builds the JSON logger used by the binaries at the configured
// level.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("env", cfg.Env)
}

func (c *Container) Config() config.Config {
	return c.config
}

func (c *Container) Logger() *slog.Logger {
	return c.logger
}

func (c *Container) DB() *bun.DB {
	return c.db
}

// Store is the persistence backend the manager loads from.
func (c *Container) Store() *bunstore.Store {
	return c.store
}

// CacheStore returns nil when caching is disabled.
func (c *Container) CacheStore() cache.Store {
	return c.cacheStore
}

func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keys
}

func (c *Container) Manager() *state.Manager {
	return c.manager
}

// Repositories returns the CRUD repositories. Every successful write through
// them invalidates the household it touched.
func (c *Container) Repositories() bunstore.Repositories {
	return c.repos
}

// Migrate creates any missing tables and drops every cached state, since
// cached bundles may describe rows the new schema no longer holds.
func (c *Container) Migrate(ctx context.Context) error {
	if err := bunstore.CreateSchema(ctx, c.db); err != nil {
		return err
	}
	if err := c.manager.InvalidateAll(ctx); err != nil {
		c.logger.Warn("failed to drop cached states after migration", "error", err)
	}
	return nil
}

// Close releases the cache store and the database.
func (c *Container) Close() error {
	var errs []error
	if closer, ok := c.cacheStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache store: %w", err))
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
