// Package cache defines the storage contract for cached household state and
// the keys it is stored under.
//
// # Overview
//
// This package exports two main interfaces and a factory:
//
//   - Store: a byte oriented get / set-with-TTL / delete contract
//   - KeySerializer: builds stable cache keys from a namespace and arguments
//   - NewStore: builds the Store selected by Config.Backend
//
// Two backends ship with the package. BackendMemory keeps entries in process
// using sturdyc. BackendBadger keeps entries on disk using badger so cached
// state survives a restart. BackendNone disables caching: NewStore returns a
// nil Store and every read rebuilds from the backend.
//
// # Basic Usage
//
//	cfg := cache.DefaultConfig()
//	store, err := cache.NewStore(cfg, logger)
//	if err != nil {
//		return err
//	}
//	if c, ok := store.(io.Closer); ok {
//		defer c.Close()
//	}
//
//	key := cache.StateKey(cache.NewDefaultKeySerializer(), householdID)
//	// key == "state::<householdID>"
//
// # Failure Semantics
//
// Every Store method may fail. The cache is an optimization and never a
// correctness dependency, so callers treat a failed Get as a miss and a
// failed Set or Delete as something to log. Store calls should always run
// under a short deadline (Config.Timeout).
//
// # Key Serialization Strategy
//
// The default key serializer handles the argument types keys are built from:
//
//   - Basic types: direct string representation
//   - fmt.Stringer values (uuid.UUID, model.ItemKey): their String form
//   - Pointers: dereferenced, nil becomes "nil"
//   - Slices/arrays: recursive serialization of elements
//   - Everything else: JSON
//
// Keys never depend on memory addresses, so they remain valid for the
// persistent backend across process restarts.
//
// # See Also
//
// The state package owns the cached value format and the invalidation rules.
// The repositorycache package routes CRUD writes through invalidation.
package cache
