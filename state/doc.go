// Package state serves derived household state and coordinates the writes
// that change it.
//
// # Reads
//
// Manager.GetState is cache-aside. It looks up "state::<household>" in the
// configured cache.Store and, on a miss, loads the household's records with
// the loader package, derives the views with the derive package, stores the
// result with a TTL and returns it. Store failures, timeouts and entries
// that fail to decode all behave like a miss: the cache only ever makes
// reads faster, never different. With a nil store every read rebuilds.
//
// Cached entries are msgpack encoded envelopes tagged with SchemaVersion.
// Entries with another version are ignored and overwritten on the next
// rebuild.
//
// # Writes
//
// Any write that affects derived state goes through RunAndInvalidate:
//
//	item, err := state.RunAndInvalidate(ctx, mgr, householdID, func(ctx context.Context) (*model.InventoryItem, error) {
//		return repo.Update(ctx, item)
//	})
//
// The cached entry is dropped only after the write succeeds. Writes that
// bypass this path are served stale until the TTL lapses.
//
// CookMeal is the composite write that validates stock, depletes it
// soonest expiring first and marks the meal cooked, all in one backend
// transaction followed by invalidation.
//
// # Concurrency
//
// Concurrent misses for the same household each rebuild unless
// Options.Coalesce is set. A rebuild that overlaps an invalidation of its
// household still returns its result to the caller but does not write it
// back to the cache. Mutate then invalidate is not atomic: a crash between
// the two leaves a stale entry for at most one TTL.
package state
