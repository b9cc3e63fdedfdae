package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-household-state/cache"
	"github.com/goliatone/go-household-state/derive"
	"github.com/goliatone/go-household-state/loader"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// ErrStateUnavailable is returned when a household's state could not be
// rebuilt. The condition is transient and the call can be retried.
var ErrStateUnavailable = errors.New("household state unavailable")

// Options tune a Manager. Zero values fall back to DefaultOptions.
type Options struct {
	// TTL is how long a built state stays cached.
	TTL time.Duration
	// CacheTimeout bounds each cache store call. A timeout counts as a miss.
	CacheTimeout time.Duration
	// LoadTimeout bounds the four backend reads of a rebuild.
	LoadTimeout time.Duration
	// Coalesce collapses concurrent rebuilds of the same household into one.
	// Off by default: concurrent misses each rebuild and the last write wins.
	Coalesce bool
	// Now is the clock used for "today". Defaults to time.Now.
	Now func() time.Time
	// Keys builds cache keys. Defaults to cache.NewDefaultKeySerializer().
	Keys   cache.KeySerializer
	Logger *slog.Logger
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		TTL:          300 * time.Second,
		CacheTimeout: 2 * time.Second,
		LoadTimeout:  10 * time.Second,
		Now:          time.Now,
		Keys:         cache.NewDefaultKeySerializer(),
		Logger:       slog.Default(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = def.TTL
	}
	if o.CacheTimeout <= 0 {
		o.CacheTimeout = def.CacheTimeout
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = def.LoadTimeout
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	if o.Keys == nil {
		o.Keys = def.Keys
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}

// Manager serves derived household state through a cache-aside store and
// coordinates the writes that invalidate it.
type Manager struct {
	backend Backend
	loader  *loader.Loader
	store   cache.Store
	opts    Options
	logger  *slog.Logger

	// generations counts invalidations per household and epoch counts
	// InvalidateAll calls. A rebuild only writes back if neither moved
	// while it ran.
	generations *xsync.MapOf[string, uint64]
	epoch       atomic.Uint64

	flight singleflight.Group
}

// NewManager wires a Manager. A nil store disables caching: every read
// rebuilds and invalidation is a no-op.
func NewManager(backend Backend, store cache.Store, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		backend:     backend,
		loader:      loader.New(backend, opts.Logger),
		store:       store,
		opts:        opts,
		logger:      opts.Logger,
		generations: xsync.NewMapOf[string, uint64](),
	}
}

// GetState returns the derived state for householdID, from cache when a
// live entry exists and by rebuilding otherwise.
func (m *Manager) GetState(ctx context.Context, householdID string) (*HouseholdState, error) {
	key := cache.StateKey(m.opts.Keys, householdID)

	if hs, ok := m.readCache(ctx, householdID, key); ok {
		stateCacheLookups.WithLabelValues("hit").Inc()
		m.logger.Debug("household state cache hit", "household_id", householdID)
		return hs, nil
	}
	stateCacheLookups.WithLabelValues("miss").Inc()
	m.logger.Debug("household state cache miss", "household_id", householdID)

	if !m.opts.Coalesce {
		return m.rebuild(ctx, householdID, key)
	}

	// The shared rebuild must not die with whichever caller started it.
	// Flights are keyed by generation so a read issued after an
	// invalidation never joins a rebuild that started before it.
	shared := context.WithoutCancel(ctx)
	gen := m.generation(householdID)
	flightKey := fmt.Sprintf("%s@%d.%d", key, gen.epoch, gen.count)
	ch := m.flight.DoChan(flightKey, func() (any, error) {
		return m.rebuild(shared, householdID, key)
	})

	// Each caller still gives up at its own deadline; the rebuild carries on
	// for the others.
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*HouseholdState), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: household %s: %w", ErrStateUnavailable, householdID, ctx.Err())
	}
}

type generation struct {
	epoch uint64
	count uint64
}

func (m *Manager) generation(householdID string) generation {
	count, _ := m.generations.Load(householdID)
	return generation{epoch: m.epoch.Load(), count: count}
}

func (m *Manager) rebuild(ctx context.Context, householdID, key string) (*HouseholdState, error) {
	gen := m.generation(householdID)
	start := time.Now()
	now := m.opts.Now()

	loadCtx, cancel := context.WithTimeout(ctx, m.opts.LoadTimeout)
	snap, err := m.loader.Load(loadCtx, householdID, now)
	cancel()
	if err != nil {
		stateRebuildDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		m.logger.Error("household state rebuild failed",
			"household_id", householdID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: household %s: %w", ErrStateUnavailable, householdID, err)
	}

	hs := &HouseholdState{
		Snapshot: snap,
		State:    derive.Build(snap, now),
	}

	elapsed := time.Since(start)
	stateRebuildDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	m.logger.Info("household state rebuilt",
		"household_id", householdID,
		"shopping_entries", len(hs.State.ShoppingList),
		"ready_to_cook", len(hs.State.ReadyToCook),
		"health_score", hs.State.Health.Score,
		"duration", elapsed,
	)

	if m.generation(householdID) != gen {
		m.logger.Debug("household invalidated during rebuild, not caching", "household_id", householdID)
		return hs, nil
	}
	m.writeCache(ctx, householdID, key, hs)

	// An invalidation that landed between the check above and the write
	// would otherwise be undone by it.
	if m.generation(householdID) != gen {
		m.deleteCache(ctx, householdID, key)
	}

	return hs, nil
}

func (m *Manager) readCache(ctx context.Context, householdID, key string) (*HouseholdState, bool) {
	if m.store == nil {
		return nil, false
	}

	cctx, cancel := context.WithTimeout(ctx, m.opts.CacheTimeout)
	defer cancel()

	data, ok, err := m.store.Get(cctx, key)
	if err != nil {
		stateCacheErrors.WithLabelValues("get").Inc()
		m.logger.Warn("household state cache read failed, rebuilding",
			"household_id", householdID,
			"error", err,
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	hs, err := decodeBundle(data, householdID)
	if err != nil {
		stateCacheErrors.WithLabelValues("decode").Inc()
		m.logger.Warn("discarding unreadable household state cache entry",
			"household_id", householdID,
			"error", err,
		)
		return nil, false
	}
	return hs, true
}

func (m *Manager) writeCache(ctx context.Context, householdID, key string, hs *HouseholdState) {
	if m.store == nil {
		return
	}

	data, err := encodeBundle(hs)
	if err != nil {
		stateCacheErrors.WithLabelValues("encode").Inc()
		m.logger.Warn("household state not cached", "household_id", householdID, "error", err)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, m.opts.CacheTimeout)
	defer cancel()

	if err := m.store.Set(cctx, key, data, m.opts.TTL); err != nil {
		stateCacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn("household state cache write failed",
			"household_id", householdID,
			"error", err,
		)
	}
}

func (m *Manager) deleteCache(ctx context.Context, householdID, key string) error {
	if m.store == nil {
		return nil
	}

	// Invalidation must still happen when the caller gave up right after
	// its write succeeded.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.CacheTimeout)
	defer cancel()

	if err := m.store.Delete(cctx, key); err != nil {
		stateCacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("invalidate household %s: %w", householdID, err)
	}
	return nil
}

// Invalidate drops the cached state for householdID. Rebuilds already in
// flight for the household will not write their result back.
func (m *Manager) Invalidate(ctx context.Context, householdID string) error {
	m.generations.Compute(householdID, func(old uint64, _ bool) (uint64, bool) {
		return old + 1, false
	})
	stateInvalidations.Inc()

	return m.deleteCache(ctx, householdID, cache.StateKey(m.opts.Keys, householdID))
}

// InvalidateAll drops every cached household state. It needs a store that
// supports prefix deletes.
func (m *Manager) InvalidateAll(ctx context.Context) error {
	m.epoch.Add(1)
	stateInvalidations.Inc()

	if m.store == nil {
		return nil
	}
	pd, ok := m.store.(cache.PrefixDeleter)
	if !ok {
		return fmt.Errorf("invalidate all: %T does not support prefix deletes", m.store)
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.CacheTimeout)
	defer cancel()

	if err := pd.DeleteByPrefix(cctx, cache.NamespacePrefix(cache.StateNamespace)); err != nil {
		stateCacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("invalidate all: %w", err)
	}
	return nil
}

// RunAndInvalidate runs a write that affects householdID's derived state and
// invalidates the cached state once it succeeds. A failing fn is returned
// unchanged and leaves the cache alone. Invalidation errors are logged, not
// returned: the write already happened and the TTL bounds the staleness.
func RunAndInvalidate[T any](ctx context.Context, m *Manager, householdID string, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := fn(ctx)
	if err != nil {
		return result, err
	}

	if err := m.Invalidate(ctx, householdID); err != nil {
		m.logger.Warn("household state invalidation failed after write",
			"household_id", householdID,
			"error", err,
		)
	}
	return result, nil
}
