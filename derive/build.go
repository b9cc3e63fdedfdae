// Package derive computes the views a household sees from a snapshot of its
// records: what planned meals reserve, what to buy, which recipes can be
// cooked right now and how healthy the pantry is.
//
// Everything here is a pure function of its inputs. Build never performs I/O,
// never mutates the snapshot and returns the same State for the same snapshot
// and clock reading, so the result can be cached and shared freely.
package derive

import (
	"sort"
	"time"

	"github.com/goliatone/go-household-state/model"
	"github.com/shopspring/decimal"
)

// State is the derived view of one snapshot.
type State struct {
	Reserved     map[model.ItemKey]float64
	ShoppingList []model.ShoppingEntry
	ReadyToCook  []string
	Health       Health
	ComputedAt   time.Time
}

// IsReady reports whether recipeID is in the ready-to-cook set.
func (s State) IsReady(recipeID string) bool {
	for _, id := range s.ReadyToCook {
		if id == recipeID {
			return true
		}
	}
	return false
}

// ReservedFor returns the reserved quantity for a name/unit pair.
func (s State) ReservedFor(name, unit string) float64 {
	return s.Reserved[model.NormalizeKey(name, unit)]
}

// index holds the O(1) lookups built once per snapshot.
type index struct {
	items   map[model.ItemKey]*model.InventoryItem
	recipes map[string]*model.Recipe
}

func newIndex(snap model.Snapshot) index {
	idx := index{
		items:   make(map[model.ItemKey]*model.InventoryItem, len(snap.Inventory)),
		recipes: make(map[string]*model.Recipe, len(snap.Recipes)),
	}
	for i := range snap.Inventory {
		idx.items[snap.Inventory[i].Key()] = &snap.Inventory[i]
	}
	for i := range snap.Recipes {
		idx.recipes[snap.Recipes[i].ID] = &snap.Recipes[i]
	}
	return idx
}

func (idx index) available(key model.ItemKey) float64 {
	if item, ok := idx.items[key]; ok {
		return item.TotalQuantity()
	}
	return 0
}

// Build derives the full State for snap as of now. The state is rebuilt from
// scratch on every call.
func Build(snap model.Snapshot, now time.Time) State {
	today := model.Date(now)
	idx := newIndex(snap)

	reserved := reservations(snap, idx, today)

	return State{
		Reserved:     reserved,
		ShoppingList: shoppingList(snap, idx, reserved),
		ReadyToCook:  readyToCook(snap, idx, reserved),
		Health:       PantryHealth(snap, today),
		ComputedAt:   now,
	}
}

// reservations totals ingredient quantities promised to upcoming meals.
// Plans that are cooked, dated before today or point at an unknown recipe
// reserve nothing.
func reservations(snap model.Snapshot, idx index, today time.Time) map[model.ItemKey]float64 {
	reserved := make(map[model.ItemKey]float64)
	for _, plan := range snap.MealPlans {
		if !plan.Reserves(today) {
			continue
		}
		recipe, ok := idx.recipes[plan.RecipeID]
		if !ok {
			continue
		}
		multiplier := model.NormalizeMultiplier(plan.ServingMultiplier)
		for _, ing := range recipe.Ingredients {
			reserved[ing.Key()] += ing.Quantity * multiplier
		}
	}
	return reserved
}

// readyToCook lists recipes whose every ingredient is covered by stock left
// over after existing reservations, at the recipe's base quantities.
func readyToCook(snap model.Snapshot, idx index, reserved map[model.ItemKey]float64) []string {
	ready := make([]string, 0, len(snap.Recipes))
	for _, recipe := range snap.Recipes {
		canMake := true
		for _, ing := range recipe.Ingredients {
			key := ing.Key()
			if idx.available(key)-reserved[key] < ing.Quantity {
				canMake = false
				break
			}
		}
		if canMake {
			ready = append(ready, recipe.ID)
		}
	}
	return ready
}

func sortedKeys(m map[model.ItemKey]float64) []model.ItemKey {
	keys := make([]model.ItemKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Unit < keys[j].Unit
	})
	return keys
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
