package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-household-state/model"
	"github.com/goliatone/go-household-state/pkg/testsupport"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(backend Backend, store *mockStore, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = testsupport.FixedClock(testNow)
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.CacheTimeout == 0 {
		opts.CacheTimeout = 50 * time.Millisecond
	}
	if store == nil {
		return NewManager(backend, nil, opts)
	}
	return NewManager(backend, store, opts)
}

// fakeBackend is an in-memory Backend for one household. Transactions
// snapshot the data and restore it when fn fails.
type fakeBackend struct {
	mu    sync.Mutex
	data  model.Snapshot
	calls []string

	inventoryErr error
	updateErr    error
	cookedErr    error

	// loadHook runs inside every inventory read.
	loadHook func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: testsupport.Household(testNow)}
}

func (b *fakeBackend) recordCall(method string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, method)
}

func (b *fakeBackend) countCalls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (b *fakeBackend) mutate(fn func(*model.Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.data)
}

func (b *fakeBackend) snapshot() model.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneSnapshot(b.data)
}

func cloneSnapshot(s model.Snapshot) model.Snapshot {
	out := s
	out.Inventory = make([]model.InventoryItem, len(s.Inventory))
	for i, item := range s.Inventory {
		item.Locations = append([]model.StockLocation(nil), item.Locations...)
		out.Inventory[i] = item
	}
	out.Recipes = append([]model.Recipe(nil), s.Recipes...)
	out.MealPlans = append([]model.MealPlan(nil), s.MealPlans...)
	out.ManualShopping = append([]model.ShoppingEntry(nil), s.ManualShopping...)
	return out
}

func (b *fakeBackend) InventoryWithLocations(ctx context.Context, householdID string) ([]model.InventoryItem, error) {
	b.recordCall("InventoryWithLocations")
	if b.loadHook != nil {
		b.loadHook()
	}
	if b.inventoryErr != nil {
		return nil, b.inventoryErr
	}
	return b.snapshot().Inventory, nil
}

func (b *fakeBackend) Recipes(ctx context.Context, householdID string) ([]model.Recipe, error) {
	b.recordCall("Recipes")
	return b.snapshot().Recipes, nil
}

func (b *fakeBackend) MealPlansFrom(ctx context.Context, householdID string, from time.Time) ([]model.MealPlan, error) {
	b.recordCall("MealPlansFrom")
	var out []model.MealPlan
	for _, p := range b.snapshot().MealPlans {
		if !p.Date.Before(from) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *fakeBackend) ManualShoppingEntries(ctx context.Context, householdID string) ([]model.ShoppingEntry, error) {
	b.recordCall("ManualShoppingEntries")
	return b.snapshot().ManualShopping, nil
}

func (b *fakeBackend) RunInTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error {
	b.recordCall("RunInTx")
	saved := b.snapshot()

	if err := fn(ctx, &fakeTx{b: b}); err != nil {
		b.mu.Lock()
		b.data = saved
		b.mu.Unlock()
		return err
	}
	return nil
}

type fakeTx struct {
	b *fakeBackend
}

func (t *fakeTx) GetMealPlan(ctx context.Context, householdID, mealID string) (model.MealPlan, bool, error) {
	t.b.recordCall("GetMealPlan")
	plan, ok := t.b.snapshot().MealPlan(mealID)
	return plan, ok, nil
}

func (t *fakeTx) GetRecipe(ctx context.Context, householdID, recipeID string) (model.Recipe, bool, error) {
	t.b.recordCall("GetRecipe")
	for _, r := range t.b.snapshot().Recipes {
		if r.ID == recipeID {
			return r, true, nil
		}
	}
	return model.Recipe{}, false, nil
}

func (t *fakeTx) FindInventoryItem(ctx context.Context, householdID, name, unit string) (model.InventoryItem, bool, error) {
	t.b.recordCall("FindInventoryItem")
	for _, item := range t.b.snapshot().Inventory {
		if strings.EqualFold(item.Name, name) && strings.ToLower(item.Unit) == strings.ToLower(unit) {
			return item, true, nil
		}
	}
	return model.InventoryItem{}, false, nil
}

func (t *fakeTx) UpdateStockLocation(ctx context.Context, locationID string, quantity float64) error {
	t.b.recordCall("UpdateStockLocation")
	if t.b.updateErr != nil {
		return t.b.updateErr
	}
	t.b.mutate(func(s *model.Snapshot) {
		for i := range s.Inventory {
			for j := range s.Inventory[i].Locations {
				if s.Inventory[i].Locations[j].ID == locationID {
					s.Inventory[i].Locations[j].Quantity = quantity
				}
			}
		}
	})
	return nil
}

func (t *fakeTx) SetMealCooked(ctx context.Context, mealID string, cooked bool) error {
	t.b.recordCall("SetMealCooked")
	if t.b.cookedErr != nil {
		return t.b.cookedErr
	}
	t.b.mutate(func(s *model.Snapshot) {
		for i := range s.MealPlans {
			if s.MealPlans[i].ID == mealID {
				s.MealPlans[i].Cooked = cooked
			}
		}
	})
	return nil
}

// mockStore is a cache.Store with error injection and call tracking.
type mockStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls []string

	getErr    error
	setErr    error
	deleteErr error
	getDelay  time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (s *mockStore) recordCall(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, method)
}

func (s *mockStore) countCalls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (s *mockStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

func (s *mockStore) put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *mockStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.recordCall("Get")
	if s.getDelay > 0 {
		select {
		case <-time.After(s.getDelay):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mockStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.recordCall("Set")
	if s.setErr != nil {
		return s.setErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mockStore) Delete(ctx context.Context, key string) error {
	s.recordCall("Delete")
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mockStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.recordCall("DeleteByPrefix")
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
		}
	}
	return nil
}

var errBackendDown = errors.New("backend down")
