package loader

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-household-state/model"
)

// fakeSource implements Source with per-set errors and call tracking.
type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	from  time.Time

	inventoryErr error
	recipesErr   error
	plansErr     error
	manualErr    error

	// block makes the meal plan read wait for ctx cancellation.
	block bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{calls: make(map[string]int)}
}

func (f *fakeSource) record(set string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[set]++
}

func (f *fakeSource) callCount(set string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[set]
}

func (f *fakeSource) InventoryWithLocations(ctx context.Context, householdID string) ([]model.InventoryItem, error) {
	f.record(SetInventory)
	if f.inventoryErr != nil {
		return nil, f.inventoryErr
	}
	return []model.InventoryItem{{ID: "eggs", HouseholdID: householdID, Name: "Eggs", Unit: "pc"}}, nil
}

func (f *fakeSource) Recipes(ctx context.Context, householdID string) ([]model.Recipe, error) {
	f.record(SetRecipes)
	if f.recipesErr != nil {
		return nil, f.recipesErr
	}
	return []model.Recipe{{ID: "omelette", HouseholdID: householdID, Name: "Omelette"}}, nil
}

func (f *fakeSource) MealPlansFrom(ctx context.Context, householdID string, from time.Time) ([]model.MealPlan, error) {
	f.record(SetMealPlans)
	f.mu.Lock()
	f.from = from
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.plansErr != nil {
		return nil, f.plansErr
	}
	return []model.MealPlan{{ID: "plan", HouseholdID: householdID, RecipeID: "omelette", Date: from}}, nil
}

func (f *fakeSource) ManualShoppingEntries(ctx context.Context, householdID string) ([]model.ShoppingEntry, error) {
	f.record(SetManualShopping)
	if f.manualErr != nil {
		return nil, f.manualErr
	}
	return []model.ShoppingEntry{{ID: "soap", Name: "Soap", Source: model.SourceManual}}, nil
}

var loadTime = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func TestLoader_Load(t *testing.T) {
	src := newFakeSource()
	l := New(src, nil)

	snap, err := l.Load(context.Background(), "h1", loadTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.HouseholdID != "h1" {
		t.Errorf("expected household h1, got %q", snap.HouseholdID)
	}
	if len(snap.Inventory) != 1 || len(snap.Recipes) != 1 || len(snap.MealPlans) != 1 || len(snap.ManualShopping) != 1 {
		t.Errorf("expected one record per set, got %+v", snap)
	}
	if !snap.LoadedAt.Equal(loadTime) {
		t.Errorf("expected LoadedAt %v, got %v", loadTime, snap.LoadedAt)
	}

	wantFrom := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if !src.from.Equal(wantFrom) {
		t.Errorf("expected meal plans read from %v, got %v", wantFrom, src.from)
	}

	for _, set := range []string{SetInventory, SetRecipes, SetMealPlans, SetManualShopping} {
		if got := src.callCount(set); got != 1 {
			t.Errorf("expected 1 read of %s, got %d", set, got)
		}
	}
}

func TestLoader_CoreFailuresAreFatal(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name    string
		setup   func(*fakeSource)
		wantSet string
	}{
		{"inventory", func(f *fakeSource) { f.inventoryErr = boom }, SetInventory},
		{"recipes", func(f *fakeSource) { f.recipesErr = boom }, SetRecipes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			tt.setup(src)

			_, err := New(src, nil).Load(context.Background(), "h1", loadTime)
			if err == nil {
				t.Fatal("expected error")
			}

			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoadError, got %T: %v", err, err)
			}
			if loadErr.Set != tt.wantSet {
				t.Errorf("expected failed set %q, got %q", tt.wantSet, loadErr.Set)
			}
			if !errors.Is(err, boom) {
				t.Errorf("expected error to wrap the backend error, got %v", err)
			}
		})
	}
}

func TestLoader_SecondaryFailuresDegrade(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	src := newFakeSource()
	src.plansErr = errors.New("meal plans table locked")
	src.manualErr = errors.New("shopping table locked")

	snap, err := New(src, logger).Load(context.Background(), "h1", loadTime)
	if err != nil {
		t.Fatalf("secondary failures must not fail the load: %v", err)
	}

	if len(snap.MealPlans) != 0 || len(snap.ManualShopping) != 0 {
		t.Errorf("expected empty secondary sets, got %+v / %+v", snap.MealPlans, snap.ManualShopping)
	}
	if len(snap.Inventory) != 1 || len(snap.Recipes) != 1 {
		t.Errorf("core sets should still load, got %+v", snap)
	}

	logs := buf.String()
	for _, set := range []string{SetMealPlans, SetManualShopping} {
		if !strings.Contains(logs, "set="+set) {
			t.Errorf("expected a warning for %s, got logs:\n%s", set, logs)
		}
	}
}

func TestLoader_TimeoutFailsLoad(t *testing.T) {
	src := newFakeSource()
	src.block = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New(src, nil).Load(ctx, "h1", loadTime)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
