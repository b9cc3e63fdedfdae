package bunstore

import (
	"time"

	"github.com/goliatone/go-household-state/model"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// InventoryItemRow is a pantry item.
type InventoryItemRow struct {
	bun.BaseModel `bun:"table:inventory_items,alias:ii"`

	ID             uuid.UUID           `bun:"id,pk,type:uuid"`
	HouseholdID    uuid.UUID           `bun:"household_id,type:uuid,notnull"`
	Name           string              `bun:"name,notnull"`
	Unit           string              `bun:"unit,notnull"`
	Category       string              `bun:"category"`
	MinThreshold   float64             `bun:"min_threshold,notnull,default:0"`
	PreferredStore *string             `bun:"preferred_store"`
	Locations      []*StockLocationRow `bun:"rel:has-many,join:id=item_id"`
}

// StockLocationRow is one place an inventory item is kept. HouseholdID is
// denormalized so writes can be attributed to a household without a join.
type StockLocationRow struct {
	bun.BaseModel `bun:"table:stock_locations,alias:sl"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	ItemID         uuid.UUID  `bun:"item_id,type:uuid,notnull"`
	HouseholdID    uuid.UUID  `bun:"household_id,type:uuid,notnull"`
	Location       string     `bun:"location,notnull"`
	Quantity       float64    `bun:"quantity,notnull,default:0"`
	ExpirationDate *time.Time `bun:"expiration_date"`
}

type RecipeRow struct {
	bun.BaseModel `bun:"table:recipes,alias:r"`

	ID           uuid.UUID        `bun:"id,pk,type:uuid"`
	HouseholdID  uuid.UUID        `bun:"household_id,type:uuid,notnull"`
	Name         string           `bun:"name,notnull"`
	Servings     int              `bun:"servings"`
	Category     string           `bun:"category"`
	Tags         []string         `bun:"tags"`
	Instructions string           `bun:"instructions"`
	Favorite     bool             `bun:"favorite,notnull,default:false"`
	Ingredients  []*IngredientRow `bun:"rel:has-many,join:id=recipe_id"`
}

type IngredientRow struct {
	bun.BaseModel `bun:"table:recipe_ingredients,alias:ri"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	RecipeID    uuid.UUID `bun:"recipe_id,type:uuid,notnull"`
	HouseholdID uuid.UUID `bun:"household_id,type:uuid,notnull"`
	Position    int       `bun:"position,notnull,default:0"`
	Name        string    `bun:"name,notnull"`
	Unit        string    `bun:"unit"`
	Quantity    float64   `bun:"quantity,notnull"`
}

type MealPlanRow struct {
	bun.BaseModel `bun:"table:meal_plans,alias:mp"`

	ID                uuid.UUID `bun:"id,pk,type:uuid"`
	HouseholdID       uuid.UUID `bun:"household_id,type:uuid,notnull"`
	Date              time.Time `bun:"date,notnull"`
	RecipeID          uuid.UUID `bun:"recipe_id,type:uuid,notnull"`
	ServingMultiplier float64   `bun:"serving_multiplier,notnull,default:1"`
	Cooked            bool      `bun:"cooked,notnull,default:false"`
}

type ShoppingEntryRow struct {
	bun.BaseModel `bun:"table:shopping_entries,alias:se"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	HouseholdID    uuid.UUID  `bun:"household_id,type:uuid,notnull"`
	Name           string     `bun:"name,notnull"`
	Quantity       float64    `bun:"quantity,notnull,default:0"`
	Unit           string     `bun:"unit"`
	Category       string     `bun:"category"`
	Checked        bool       `bun:"checked,notnull,default:false"`
	CheckedAt      *time.Time `bun:"checked_at"`
	CheckedBy      *string    `bun:"checked_by"`
	PreferredStore *string    `bun:"preferred_store"`
}

func (r *InventoryItemRow) toModel() model.InventoryItem {
	item := model.InventoryItem{
		ID:             r.ID.String(),
		HouseholdID:    r.HouseholdID.String(),
		Name:           r.Name,
		Unit:           r.Unit,
		Category:       r.Category,
		MinThreshold:   r.MinThreshold,
		PreferredStore: r.PreferredStore,
		Locations:      make([]model.StockLocation, 0, len(r.Locations)),
	}
	for _, loc := range r.Locations {
		item.Locations = append(item.Locations, loc.toModel())
	}
	return item
}

func (r *StockLocationRow) toModel() model.StockLocation {
	return model.StockLocation{
		ID:             r.ID.String(),
		Location:       r.Location,
		Quantity:       r.Quantity,
		ExpirationDate: dateOnly(r.ExpirationDate),
	}
}

func (r *RecipeRow) toModel() model.Recipe {
	recipe := model.Recipe{
		ID:           r.ID.String(),
		HouseholdID:  r.HouseholdID.String(),
		Name:         r.Name,
		Servings:     r.Servings,
		Category:     r.Category,
		Tags:         r.Tags,
		Instructions: r.Instructions,
		Favorite:     r.Favorite,
		Ingredients:  make([]model.Ingredient, 0, len(r.Ingredients)),
	}
	for _, ing := range r.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, model.Ingredient{
			Name:     ing.Name,
			Unit:     ing.Unit,
			Quantity: ing.Quantity,
		})
	}
	return recipe
}

func (r *MealPlanRow) toModel() model.MealPlan {
	return model.MealPlan{
		ID:                r.ID.String(),
		HouseholdID:       r.HouseholdID.String(),
		Date:              model.Date(r.Date),
		RecipeID:          r.RecipeID.String(),
		ServingMultiplier: model.NormalizeMultiplier(r.ServingMultiplier),
		Cooked:            r.Cooked,
	}
}

func (r *ShoppingEntryRow) toModel() model.ShoppingEntry {
	return model.ShoppingEntry{
		ID:             r.ID.String(),
		Name:           r.Name,
		Quantity:       r.Quantity,
		Unit:           r.Unit,
		Category:       model.CategoryOrDefault(r.Category),
		Source:         model.SourceManual,
		Checked:        r.Checked,
		CheckedAt:      r.CheckedAt,
		CheckedBy:      r.CheckedBy,
		PreferredStore: r.PreferredStore,
	}
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := model.Date(*t)
	return &d
}

// Household methods resolve the owning household of a row, or "" for a nil
// row. They are handed to repositorycache so generic writes invalidate the
// right household.

func (r *InventoryItemRow) Household() string {
	if r == nil {
		return ""
	}
	return householdString(r.HouseholdID)
}

func (r *StockLocationRow) Household() string {
	if r == nil {
		return ""
	}
	return householdString(r.HouseholdID)
}

func (r *RecipeRow) Household() string {
	if r == nil {
		return ""
	}
	return householdString(r.HouseholdID)
}

func (r *IngredientRow) Household() string {
	if r == nil {
		return ""
	}
	return householdString(r.HouseholdID)
}

func (r *MealPlanRow) Household() string {
	if r == nil {
		return ""
	}
	return householdString(r.HouseholdID)
}

func (r *ShoppingEntryRow) Household() string {
	if r == nil {
		return ""
	}
	return householdString(r.HouseholdID)
}

func householdString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
