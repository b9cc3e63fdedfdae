package model

import "time"

// CategoryOther is assigned to entries whose category is unknown.
const CategoryOther = "Other"

// Source tags where a shopping entry came from.
type Source string

const (
	SourceMeals             Source = "Meals"
	SourceThreshold         Source = "Threshold"
	SourceMealsAndThreshold Source = "Meals + Threshold"
	SourceManual            Source = "Manual"
)

// Breakdown keys on computed shopping entries.
const (
	BreakdownMeals     = "meals"
	BreakdownThreshold = "threshold"
)

const (
	DefaultServingMultiplier = 1.0
	MaxServingMultiplier     = 10.0
)

// StockLocation is one place an inventory item is stored.
type StockLocation struct {
	ID             string     `json:"id" msgpack:"id"`
	Location       string     `json:"location" msgpack:"location"`
	Quantity       float64    `json:"quantity" msgpack:"quantity"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty" msgpack:"expiration_date,omitempty"`
}

// InventoryItem is a pantry item spread over one or more stock locations.
// Items are matched against recipes and reservations by Key, so the same
// name with a different unit is a different item.
type InventoryItem struct {
	ID             string          `json:"id" msgpack:"id"`
	HouseholdID    string          `json:"household_id" msgpack:"household_id"`
	Name           string          `json:"name" msgpack:"name"`
	Unit           string          `json:"unit" msgpack:"unit"`
	Category       string          `json:"category" msgpack:"category"`
	MinThreshold   float64         `json:"min_threshold" msgpack:"min_threshold"`
	PreferredStore *string         `json:"preferred_store,omitempty" msgpack:"preferred_store,omitempty"`
	Locations      []StockLocation `json:"locations" msgpack:"locations"`
}

// TotalQuantity sums the quantity held across all locations.
func (i InventoryItem) TotalQuantity() float64 {
	var total float64
	for _, loc := range i.Locations {
		total += loc.Quantity
	}
	return total
}

// Key returns the identity used for matching against ingredients.
func (i InventoryItem) Key() ItemKey {
	return NormalizeKey(i.Name, i.Unit)
}

// Ingredient is a single line of a recipe.
type Ingredient struct {
	Name     string  `json:"name" msgpack:"name"`
	Unit     string  `json:"unit" msgpack:"unit"`
	Quantity float64 `json:"quantity" msgpack:"quantity"`
}

// Key returns the identity used for matching against inventory.
func (i Ingredient) Key() ItemKey {
	return NormalizeKey(i.Name, i.Unit)
}

type Recipe struct {
	ID           string       `json:"id" msgpack:"id"`
	HouseholdID  string       `json:"household_id" msgpack:"household_id"`
	Name         string       `json:"name" msgpack:"name"`
	Servings     int          `json:"servings" msgpack:"servings"`
	Category     string       `json:"category" msgpack:"category"`
	Tags         []string     `json:"tags" msgpack:"tags"`
	Instructions string       `json:"instructions" msgpack:"instructions"`
	Favorite     bool         `json:"favorite" msgpack:"favorite"`
	Ingredients  []Ingredient `json:"ingredients" msgpack:"ingredients"`
}

// MealPlan schedules a recipe on a date. Date carries no time of day.
type MealPlan struct {
	ID                string    `json:"id" msgpack:"id"`
	HouseholdID       string    `json:"household_id" msgpack:"household_id"`
	Date              time.Time `json:"date" msgpack:"date"`
	RecipeID          string    `json:"recipe_id" msgpack:"recipe_id"`
	ServingMultiplier float64   `json:"serving_multiplier" msgpack:"serving_multiplier"`
	Cooked            bool      `json:"cooked" msgpack:"cooked"`
}

// Reserves reports whether the plan still holds ingredients on today.
func (m MealPlan) Reserves(today time.Time) bool {
	return !m.Cooked && !m.Date.Before(Date(today))
}

// ShoppingEntry is one line of the shopping list. Computed entries carry a
// Breakdown of the reasons that contributed to Quantity.
type ShoppingEntry struct {
	ID             string             `json:"id,omitempty" msgpack:"id,omitempty"`
	Name           string             `json:"name" msgpack:"name"`
	Quantity       float64            `json:"quantity" msgpack:"quantity"`
	Unit           string             `json:"unit" msgpack:"unit"`
	Category       string             `json:"category" msgpack:"category"`
	Source         Source             `json:"source" msgpack:"source"`
	Checked        bool               `json:"checked" msgpack:"checked"`
	CheckedAt      *time.Time         `json:"checked_at,omitempty" msgpack:"checked_at,omitempty"`
	CheckedBy      *string            `json:"checked_by,omitempty" msgpack:"checked_by,omitempty"`
	PreferredStore *string            `json:"preferred_store,omitempty" msgpack:"preferred_store,omitempty"`
	Breakdown      map[string]float64 `json:"breakdown,omitempty" msgpack:"breakdown,omitempty"`
}

// Snapshot is the four record sets of a household loaded together. It is
// the sole input to derivation and is never mutated after the load.
type Snapshot struct {
	HouseholdID    string          `json:"household_id" msgpack:"household_id"`
	Inventory      []InventoryItem `json:"inventory" msgpack:"inventory"`
	Recipes        []Recipe        `json:"recipes" msgpack:"recipes"`
	MealPlans      []MealPlan      `json:"meal_plans" msgpack:"meal_plans"`
	ManualShopping []ShoppingEntry `json:"manual_shopping" msgpack:"manual_shopping"`
	LoadedAt       time.Time       `json:"loaded_at" msgpack:"loaded_at"`
}

// MealPlan finds a plan by id.
func (s Snapshot) MealPlan(id string) (MealPlan, bool) {
	for _, m := range s.MealPlans {
		if m.ID == id {
			return m, true
		}
	}
	return MealPlan{}, false
}
