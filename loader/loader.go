// Package loader fetches the four record sets a household's derived state is
// built from. The reads run concurrently so a load costs as much as its
// slowest read.
//
// Inventory and recipes are core sets: if either read fails the load fails.
// Meal plans and manual shopping entries are secondary: a failed read is
// logged and the set is treated as empty so pantry and recipe views keep
// working.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-household-state/model"
	"golang.org/x/sync/errgroup"
)

// Record set names used in errors and log lines.
const (
	SetInventory      = "inventory"
	SetRecipes        = "recipes"
	SetMealPlans      = "meal_plans"
	SetManualShopping = "manual_shopping"
)

// Source is the read side of the persistence backend.
type Source interface {
	InventoryWithLocations(ctx context.Context, householdID string) ([]model.InventoryItem, error)
	Recipes(ctx context.Context, householdID string) ([]model.Recipe, error)
	// MealPlansFrom returns plans dated on or after from.
	MealPlansFrom(ctx context.Context, householdID string, from time.Time) ([]model.MealPlan, error)
	ManualShoppingEntries(ctx context.Context, householdID string) ([]model.ShoppingEntry, error)
}

// LoadError reports a failed core record set.
type LoadError struct {
	Set string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Set, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader assembles snapshots from a Source.
type Loader struct {
	source Source
	logger *slog.Logger
}

// New creates a Loader. A nil logger falls back to slog.Default().
func New(source Source, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, logger: logger}
}

// Load reads every record set for householdID and returns the snapshot.
// Meal plans are read from the calendar day of now onwards. Cancelling ctx
// fails the whole load, secondary sets included.
func (l *Loader) Load(ctx context.Context, householdID string, now time.Time) (model.Snapshot, error) {
	start := time.Now()
	today := model.Date(now)
	snap := model.Snapshot{HouseholdID: householdID, LoadedAt: now}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := l.source.InventoryWithLocations(gCtx, householdID)
		if err != nil {
			return &LoadError{Set: SetInventory, Err: err}
		}
		snap.Inventory = items
		return nil
	})

	g.Go(func() error {
		recipes, err := l.source.Recipes(gCtx, householdID)
		if err != nil {
			return &LoadError{Set: SetRecipes, Err: err}
		}
		snap.Recipes = recipes
		return nil
	})

	g.Go(func() error {
		plans, err := l.source.MealPlansFrom(gCtx, householdID, today)
		if err != nil {
			l.degraded(householdID, SetMealPlans, err)
			return nil
		}
		snap.MealPlans = plans
		return nil
	})

	g.Go(func() error {
		entries, err := l.source.ManualShoppingEntries(gCtx, householdID)
		if err != nil {
			l.degraded(householdID, SetManualShopping, err)
			return nil
		}
		snap.ManualShopping = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.Snapshot{}, err
	}

	// Secondary reads swallow their errors, so a timeout that only hit them
	// would otherwise look like a successful, degraded load.
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, fmt.Errorf("load household %s: %w", householdID, err)
	}

	l.logger.Debug("household snapshot loaded",
		"household_id", householdID,
		"inventory", len(snap.Inventory),
		"recipes", len(snap.Recipes),
		"meal_plans", len(snap.MealPlans),
		"manual_shopping", len(snap.ManualShopping),
		"duration", time.Since(start),
	)

	return snap, nil
}

func (l *Loader) degraded(householdID, set string, err error) {
	l.logger.Warn("secondary record set unavailable, using empty list",
		"household_id", householdID,
		"set", set,
		"error", err,
	)
}
