package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-household-state/cache"
	"github.com/goliatone/go-household-state/loader"
	"github.com/goliatone/go-household-state/model"
	"github.com/goliatone/go-household-state/pkg/testsupport"
	"github.com/vmihailenco/msgpack/v5"
)

var stateKey = "state::" + testsupport.HouseholdID

func TestManager_GetState_MissThenHit(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	m := newTestManager(backend, store, Options{})
	ctx := context.Background()

	first, err := m.GetState(ctx, testsupport.HouseholdID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.FromCache {
		t.Error("first read should be a rebuild")
	}
	if !store.has(stateKey) {
		t.Fatalf("expected state to be cached under %q", stateKey)
	}

	second, err := m.GetState(ctx, testsupport.HouseholdID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.FromCache {
		t.Error("second read should be served from cache")
	}
	if got := backend.countCalls("InventoryWithLocations"); got != 1 {
		t.Errorf("expected 1 backend load, got %d", got)
	}

	if len(second.State.ShoppingList) != len(first.State.ShoppingList) {
		t.Fatalf("cached shopping list differs: %+v vs %+v", second.State.ShoppingList, first.State.ShoppingList)
	}
	for i := range first.State.ShoppingList {
		a, b := first.State.ShoppingList[i], second.State.ShoppingList[i]
		if a.Name != b.Name || a.Quantity != b.Quantity || a.Source != b.Source {
			t.Errorf("entry %d differs after cache round trip: %+v vs %+v", i, a, b)
		}
	}
	if second.State.ReservedFor("eggs", "pc") != 6 {
		t.Errorf("expected reservations to survive the cache, got %v", second.State.Reserved)
	}
	if !second.State.IsReady("omelette") {
		t.Errorf("expected omelette ready after cache round trip, got %v", second.State.ReadyToCook)
	}
	if second.State.Health != first.State.Health {
		t.Errorf("expected health %+v, got %+v", first.State.Health, second.State.Health)
	}
}

func TestRunAndInvalidate_NextReadReflectsMutation(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	m := newTestManager(backend, store, Options{})
	ctx := context.Background()

	before, err := m.GetState(ctx, testsupport.HouseholdID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(before.State.ShoppingList) != 2 {
		t.Fatalf("expected eggs and milk on the list, got %+v", before.State.ShoppingList)
	}

	got, err := RunAndInvalidate(ctx, m, testsupport.HouseholdID, func(ctx context.Context) (string, error) {
		backend.mutate(func(s *model.Snapshot) {
			s.Inventory[1].Locations[0].Quantity = 5
		})
		return "milk-restocked", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "milk-restocked" {
		t.Errorf("expected mutation result to pass through, got %q", got)
	}
	if store.has(stateKey) {
		t.Error("expected cached state to be dropped")
	}

	after, err := m.GetState(ctx, testsupport.HouseholdID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.FromCache {
		t.Error("read after a mutation must rebuild")
	}
	if len(after.State.ShoppingList) != 1 || after.State.ShoppingList[0].Name != "Eggs" {
		t.Errorf("expected only eggs left on the list, got %+v", after.State.ShoppingList)
	}
}

func TestRunAndInvalidate_FailedMutationSkipsInvalidation(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	m := newTestManager(backend, store, Options{})
	ctx := context.Background()

	if _, err := m.GetState(ctx, testsupport.HouseholdID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeErr := errors.New("unique constraint violated")
	_, err := RunAndInvalidate(ctx, m, testsupport.HouseholdID, func(ctx context.Context) (int, error) {
		return 0, writeErr
	})
	if err != writeErr {
		t.Errorf("expected the mutation error unchanged, got %v", err)
	}
	if got := store.countCalls("Delete"); got != 0 {
		t.Errorf("expected no invalidation, got %d deletes", got)
	}
	if !store.has(stateKey) {
		t.Error("expected cached state to survive a failed mutation")
	}
}

func TestRunAndInvalidate_DeleteFailureIsNotFatal(t *testing.T) {
	store := newMockStore()
	store.deleteErr = errors.New("cache unreachable")
	m := newTestManager(newFakeBackend(), store, Options{})

	got, err := RunAndInvalidate(context.Background(), m, testsupport.HouseholdID, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("invalidation failures must not fail the write: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if store.countCalls("Delete") != 1 {
		t.Error("expected an invalidation attempt")
	}
}

func TestManager_InvalidateRunsAfterCallerCancels(t *testing.T) {
	store := newMockStore()
	m := newTestManager(newFakeBackend(), store, Options{})
	store.put(stateKey, []byte("stale"))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := RunAndInvalidate(ctx, m, testsupport.HouseholdID, func(ctx context.Context) (bool, error) {
		cancel()
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.has(stateKey) {
		t.Error("expected invalidation even though the caller's context was cancelled")
	}
}

func TestManager_CacheErrorsAreNotFatal(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	store.getErr = errors.New("connection reset")
	store.setErr = errors.New("out of memory")
	m := newTestManager(backend, store, Options{})

	for i := 0; i < 2; i++ {
		hs, err := m.GetState(context.Background(), testsupport.HouseholdID)
		if err != nil {
			t.Fatalf("read %d: cache errors must not surface: %v", i, err)
		}
		if hs.FromCache {
			t.Errorf("read %d: expected a rebuild", i)
		}
	}
	if got := backend.countCalls("InventoryWithLocations"); got != 2 {
		t.Errorf("expected every read to rebuild, got %d loads", got)
	}
}

func TestManager_CacheTimeoutIsAMiss(t *testing.T) {
	store := newMockStore()
	store.getDelay = time.Second
	m := newTestManager(newFakeBackend(), store, Options{CacheTimeout: 10 * time.Millisecond})

	start := time.Now()
	hs, err := m.GetState(context.Background(), testsupport.HouseholdID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hs.FromCache {
		t.Error("expected a rebuild after the cache timed out")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("expected the cache timeout to bound the read, took %v", elapsed)
	}
}

func TestManager_NilStoreAlwaysRebuilds(t *testing.T) {
	backend := newFakeBackend()
	m := newTestManager(backend, nil, Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.GetState(ctx, testsupport.HouseholdID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := backend.countCalls("InventoryWithLocations"); got != 3 {
		t.Errorf("expected 3 loads, got %d", got)
	}
	if err := m.Invalidate(ctx, testsupport.HouseholdID); err != nil {
		t.Errorf("invalidate without a store should be a no-op, got %v", err)
	}
	if err := m.InvalidateAll(ctx); err != nil {
		t.Errorf("invalidate all without a store should be a no-op, got %v", err)
	}
}

func TestManager_UnreadableEntriesAreMisses(t *testing.T) {
	wrongVersion, err := msgpack.Marshal(&bundle{Version: SchemaVersion + 1, Household: testsupport.HouseholdID})
	if err != nil {
		t.Fatalf("failed to encode bundle: %v", err)
	}
	otherHousehold, err := msgpack.Marshal(&bundle{Version: SchemaVersion, Household: "someone-else"})
	if err != nil {
		t.Fatalf("failed to encode bundle: %v", err)
	}

	tests := []struct {
		name  string
		value []byte
	}{
		{"schema version mismatch", wrongVersion},
		{"household mismatch", otherHousehold},
		{"garbage", []byte{0xc1, 0x00, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			store := newMockStore()
			store.put(stateKey, tt.value)
			m := newTestManager(backend, store, Options{})

			hs, err := m.GetState(context.Background(), testsupport.HouseholdID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if hs.FromCache {
				t.Error("expected the entry to be ignored")
			}
			if backend.countCalls("InventoryWithLocations") != 1 {
				t.Error("expected a rebuild")
			}

			hs, err = m.GetState(context.Background(), testsupport.HouseholdID)
			if err != nil || !hs.FromCache {
				t.Errorf("expected the rebuilt entry to replace the bad one, got fromCache=%v err=%v", hs != nil && hs.FromCache, err)
			}
		})
	}
}

func TestManager_LoadFailureIsStateUnavailable(t *testing.T) {
	backend := newFakeBackend()
	backend.inventoryErr = errBackendDown
	store := newMockStore()
	m := newTestManager(backend, store, Options{})

	_, err := m.GetState(context.Background(), testsupport.HouseholdID)
	if !errors.Is(err, ErrStateUnavailable) {
		t.Fatalf("expected ErrStateUnavailable, got %v", err)
	}

	var loadErr *loader.LoadError
	if !errors.As(err, &loadErr) || loadErr.Set != loader.SetInventory {
		t.Errorf("expected an inventory LoadError in the chain, got %v", err)
	}
	if !errors.Is(err, errBackendDown) {
		t.Errorf("expected the backend error in the chain, got %v", err)
	}
	if store.countCalls("Set") != 0 {
		t.Error("failed rebuilds must not be cached")
	}
}

func TestManager_InvalidationDuringRebuildIsNotCached(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	m := newTestManager(backend, store, Options{})

	var once sync.Once
	backend.loadHook = func() {
		once.Do(func() {
			if err := m.Invalidate(context.Background(), testsupport.HouseholdID); err != nil {
				t.Errorf("invalidate failed: %v", err)
			}
		})
	}

	hs, err := m.GetState(context.Background(), testsupport.HouseholdID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hs == nil {
		t.Fatal("the racing caller should still get its state")
	}
	if store.has(stateKey) {
		t.Error("a rebuild that overlapped an invalidation must not be cached")
	}

	if _, err := m.GetState(context.Background(), testsupport.HouseholdID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.has(stateKey) {
		t.Error("expected the next clean rebuild to be cached")
	}
}

func TestManager_InvalidateAll(t *testing.T) {
	store := newMockStore()
	m := newTestManager(newFakeBackend(), store, Options{})

	store.put(stateKey, []byte("a"))
	store.put("state::other", []byte("b"))
	store.put("sessions::x", []byte("c"))

	if err := m.InvalidateAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.has(stateKey) || store.has("state::other") {
		t.Error("expected every household state to be dropped")
	}
	if !store.has("sessions::x") {
		t.Error("expected keys outside the state namespace to survive")
	}
}

func TestManager_CoalesceCollapsesConcurrentMisses(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	m := newTestManager(backend, store, Options{Coalesce: true})

	const readers = 5
	release := make(chan struct{})
	backend.loadHook = func() { <-release }

	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.GetState(context.Background(), testsupport.HouseholdID); err != nil {
				errs <- err
			}
		}()
	}

	// Every reader has missed once it has asked the store.
	deadline := time.Now().Add(2 * time.Second)
	for store.countCalls("Get") < readers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	if got := backend.countCalls("InventoryWithLocations"); got != 1 {
		t.Errorf("expected a single coalesced rebuild, got %d", got)
	}
}

func TestManager_CoalescedReadAfterInvalidationStartsNewRebuild(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	m := newTestManager(backend, store, Options{Coalesce: true})
	ctx := context.Background()

	var loads atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	backend.loadHook = func() {
		if loads.Add(1) == 1 {
			close(started)
			<-release
		}
	}

	stale := make(chan error, 1)
	go func() {
		_, err := m.GetState(ctx, testsupport.HouseholdID)
		stale <- err
	}()
	<-started

	if err := m.Invalidate(ctx, testsupport.HouseholdID); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	// Would block on release if it joined the first flight.
	if _, err := m.GetState(ctx, testsupport.HouseholdID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := backend.countCalls("InventoryWithLocations"); got != 2 {
		t.Errorf("expected a second rebuild, got %d loads", got)
	}

	close(release)
	if err := <-stale; err != nil {
		t.Errorf("unexpected error from the first reader: %v", err)
	}
}

func TestManager_CoalescedReadHonorsCallerDeadline(t *testing.T) {
	backend := newFakeBackend()
	store := newMockStore()
	m := newTestManager(backend, store, Options{Coalesce: true})

	release := make(chan struct{})
	backend.loadHook = func() { <-release }
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.GetState(ctx, testsupport.HouseholdID)
	if !errors.Is(err, ErrStateUnavailable) {
		t.Fatalf("expected ErrStateUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the caller deadline in the chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("caller waited %v past its deadline", elapsed)
	}
}

func TestManager_CustomKeySerializer(t *testing.T) {
	store := newMockStore()
	keys := prefixedKeys{prefix: "tenant-a"}
	m := newTestManager(newFakeBackend(), store, Options{Keys: keys})

	if _, err := m.GetState(context.Background(), testsupport.HouseholdID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := keys.SerializeKey(cache.StateNamespace, testsupport.HouseholdID)
	if !store.has(want) {
		t.Errorf("expected state under %q", want)
	}
}

type prefixedKeys struct {
	prefix string
}

func (k prefixedKeys) SerializeKey(namespace string, args ...any) string {
	return k.prefix + "/" + cache.NewDefaultKeySerializer().SerializeKey(namespace, args...)
}
