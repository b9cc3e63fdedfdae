package derive

import (
	"sort"

	"github.com/goliatone/go-household-state/model"
)

// Not-found kinds reported by ValidateCanCook.
const (
	NotFoundMeal   = "meal"
	NotFoundRecipe = "recipe"
)

// Shortfall describes one ingredient a meal cannot be cooked without.
type Shortfall struct {
	Ingredient string  `json:"ingredient"`
	Unit       string  `json:"unit"`
	Needed     float64 `json:"needed"`
	Available  float64 `json:"available"`
	Short      float64 `json:"short"`
}

// CookValidation is the structured answer to "can this meal be cooked".
// NotFound is set instead of returning an error when the meal or its recipe
// is missing from the snapshot.
type CookValidation struct {
	CanCook    bool        `json:"can_cook"`
	Missing    []Shortfall `json:"missing"`
	RecipeName string      `json:"recipe_name,omitempty"`
	NotFound   string      `json:"not_found,omitempty"`
}

// ValidateCanCook checks a planned meal against raw pantry stock. Other
// reservations are ignored since the meal being cooked is itself the
// consumer of its reservation.
func ValidateCanCook(snap model.Snapshot, mealID string) CookValidation {
	meal, ok := snap.MealPlan(mealID)
	if !ok {
		return CookValidation{NotFound: NotFoundMeal}
	}

	idx := newIndex(snap)
	recipe, ok := idx.recipes[meal.RecipeID]
	if !ok {
		return CookValidation{NotFound: NotFoundRecipe}
	}

	multiplier := model.NormalizeMultiplier(meal.ServingMultiplier)
	missing := []Shortfall{}
	for _, ing := range recipe.Ingredients {
		needed := ing.Quantity * multiplier
		available := idx.available(ing.Key())
		if available < needed {
			missing = append(missing, Shortfall{
				Ingredient: ing.Name,
				Unit:       ing.Unit,
				Needed:     round2(needed),
				Available:  round2(available),
				Short:      round2(needed - available),
			})
		}
	}

	return CookValidation{
		CanCook:    len(missing) == 0,
		Missing:    missing,
		RecipeName: recipe.Name,
	}
}

// LocationUpdate is the new quantity for a stock location after depletion.
type LocationUpdate struct {
	LocationID string  `json:"location_id"`
	Quantity   float64 `json:"quantity"`
}

// PlanDepletion takes needed units out of locations, soonest expiration
// first. Locations without an expiration date are used last. Each location
// gives up as much as it holds, the remainder carries to the next one, and
// the walk stops when needed is exhausted or locations run out. Only
// locations whose quantity changes are returned.
func PlanDepletion(locations []model.StockLocation, needed float64) []LocationUpdate {
	ordered := make([]model.StockLocation, len(locations))
	copy(ordered, locations)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].ExpirationDate, ordered[j].ExpirationDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	var updates []LocationUpdate
	remaining := needed
	for _, loc := range ordered {
		if remaining <= 0 {
			break
		}
		if loc.Quantity <= 0 {
			continue
		}
		taken := min(loc.Quantity, remaining)
		remaining -= taken
		updates = append(updates, LocationUpdate{
			LocationID: loc.ID,
			Quantity:   loc.Quantity - taken,
		})
	}
	return updates
}
