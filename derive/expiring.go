package derive

import (
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-household-state/model"
)

// DefaultExpiringWindow is the look-ahead used by health and suggestions.
const DefaultExpiringWindow = 3

// ExpiringLocation is a stock location whose expiration date falls inside
// the requested window.
type ExpiringLocation struct {
	ItemID        string    `json:"item_id"`
	ItemName      string    `json:"item_name"`
	LocationID    string    `json:"location_id"`
	Location      string    `json:"location"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"`
	ExpiresOn     time.Time `json:"expires_on"`
	ExpiresInDays int       `json:"expires_in_days"`
	IsExpired     bool      `json:"is_expired"`
}

// ExpiringSoon yields locations expiring on or before today+days, soonest
// first. Already expired locations are included and flagged. The sequence
// is computed when ranged over and can be ranged over again.
func ExpiringSoon(snap model.Snapshot, today time.Time, days int) iter.Seq[ExpiringLocation] {
	return func(yield func(ExpiringLocation) bool) {
		for _, loc := range collectExpiring(snap, today, days) {
			if !yield(loc) {
				return
			}
		}
	}
}

func collectExpiring(snap model.Snapshot, today time.Time, days int) []ExpiringLocation {
	today = model.Date(today)
	cutoff := today.AddDate(0, 0, days)

	var out []ExpiringLocation
	for _, item := range snap.Inventory {
		for _, loc := range item.Locations {
			if loc.ExpirationDate == nil {
				continue
			}
			expires := model.Date(*loc.ExpirationDate)
			if expires.After(cutoff) {
				continue
			}
			daysUntil := int(expires.Sub(today).Hours() / 24)
			out = append(out, ExpiringLocation{
				ItemID:        item.ID,
				ItemName:      item.Name,
				LocationID:    loc.ID,
				Location:      loc.Location,
				Quantity:      loc.Quantity,
				Unit:          item.Unit,
				ExpiresOn:     expires,
				ExpiresInDays: daysUntil,
				IsExpired:     daysUntil < 0,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExpiresOn.Before(out[j].ExpiresOn)
	})
	return out
}

// SuggestedRecipe is a recipe that uses an expiring ingredient.
type SuggestedRecipe struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Tags        []string `json:"tags"`
	ReadyToCook bool     `json:"ready_to_cook"`
}

// Suggestion groups the recipes that could use up one expiring item.
type Suggestion struct {
	ExpiringItem  string            `json:"expiring_item"`
	ExpiresInDays int               `json:"expires_in_days"`
	Quantity      float64           `json:"quantity"`
	Unit          string            `json:"unit"`
	Recipes       []SuggestedRecipe `json:"recipes"`
}

// SuggestRecipes cross references items expiring within the default window
// against recipe ingredient names, ignoring case and unit. Each item name
// appears once, keyed by its soonest expiring location.
func SuggestRecipes(snap model.Snapshot, st State, today time.Time) []Suggestion {
	var suggestions []Suggestion
	seen := make(map[string]struct{})

	for exp := range ExpiringSoon(snap, today, DefaultExpiringWindow) {
		if _, ok := seen[exp.ItemName]; ok {
			continue
		}
		seen[exp.ItemName] = struct{}{}

		var matches []SuggestedRecipe
		for _, recipe := range snap.Recipes {
			for _, ing := range recipe.Ingredients {
				if strings.EqualFold(ing.Name, exp.ItemName) {
					matches = append(matches, SuggestedRecipe{
						ID:          recipe.ID,
						Name:        recipe.Name,
						Tags:        recipe.Tags,
						ReadyToCook: st.IsReady(recipe.ID),
					})
					break
				}
			}
		}

		if len(matches) == 0 {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			ExpiringItem:  exp.ItemName,
			ExpiresInDays: exp.ExpiresInDays,
			Quantity:      exp.Quantity,
			Unit:          exp.Unit,
			Recipes:       matches,
		})
	}

	return suggestions
}
