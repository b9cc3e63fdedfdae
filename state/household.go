package state

import (
	"iter"
	"time"

	"github.com/goliatone/go-household-state/derive"
	"github.com/goliatone/go-household-state/model"
)

// HouseholdState is a derived state together with the snapshot it was
// built from. Treat it as read-only: cached copies may be shared.
type HouseholdState struct {
	Snapshot model.Snapshot
	State    derive.State
	// FromCache is set when the value was served from the cache store.
	FromCache bool
}

// ShoppingList returns the computed and manual shopping entries.
func (h *HouseholdState) ShoppingList() []model.ShoppingEntry {
	return h.State.ShoppingList
}

// ExpiringSoon yields stock locations expiring within days of today.
func (h *HouseholdState) ExpiringSoon(today time.Time, days int) iter.Seq[derive.ExpiringLocation] {
	return derive.ExpiringSoon(h.Snapshot, today, days)
}

// Suggestions lists recipes that would use up expiring items.
func (h *HouseholdState) Suggestions(today time.Time) []derive.Suggestion {
	return derive.SuggestRecipes(h.Snapshot, h.State, today)
}

// ValidateCanCook checks a planned meal against current stock.
func (h *HouseholdState) ValidateCanCook(mealID string) derive.CookValidation {
	return derive.ValidateCanCook(h.Snapshot, mealID)
}
