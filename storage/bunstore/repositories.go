package bunstore

import (
	"log/slog"

	"github.com/goliatone/go-household-state/repositorycache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repositories groups the generic CRUD repositories of every record set.
// They are the path for writes outside the cook flow, such as the handlers
// that edit inventory or plan meals.
type Repositories struct {
	Items       repository.Repository[*InventoryItemRow]
	Locations   repository.Repository[*StockLocationRow]
	Recipes     repository.Repository[*RecipeRow]
	Ingredients repository.Repository[*IngredientRow]
	MealPlans   repository.Repository[*MealPlanRow]
	Shopping    repository.Repository[*ShoppingEntryRow]
}

// NewRepositories builds plain repositories over db. Writes through them do
// not invalidate derived state; wrap them with Invalidating for that.
func NewRepositories(db *bun.DB) Repositories {
	return Repositories{
		Items: repository.NewRepository[*InventoryItemRow](db, repository.ModelHandlers[*InventoryItemRow]{
			NewRecord:     func() *InventoryItemRow { return &InventoryItemRow{} },
			GetID:         func(r *InventoryItemRow) uuid.UUID { return r.ID },
			SetID:         func(r *InventoryItemRow, id uuid.UUID) { r.ID = id },
			GetIdentifier: func() string { return "name" },
		}),
		Locations: repository.NewRepository[*StockLocationRow](db, repository.ModelHandlers[*StockLocationRow]{
			NewRecord:     func() *StockLocationRow { return &StockLocationRow{} },
			GetID:         func(r *StockLocationRow) uuid.UUID { return r.ID },
			SetID:         func(r *StockLocationRow, id uuid.UUID) { r.ID = id },
			GetIdentifier: func() string { return "location" },
		}),
		Recipes: repository.NewRepository[*RecipeRow](db, repository.ModelHandlers[*RecipeRow]{
			NewRecord:     func() *RecipeRow { return &RecipeRow{} },
			GetID:         func(r *RecipeRow) uuid.UUID { return r.ID },
			SetID:         func(r *RecipeRow, id uuid.UUID) { r.ID = id },
			GetIdentifier: func() string { return "name" },
		}),
		Ingredients: repository.NewRepository[*IngredientRow](db, repository.ModelHandlers[*IngredientRow]{
			NewRecord:     func() *IngredientRow { return &IngredientRow{} },
			GetID:         func(r *IngredientRow) uuid.UUID { return r.ID },
			SetID:         func(r *IngredientRow, id uuid.UUID) { r.ID = id },
			GetIdentifier: func() string { return "name" },
		}),
		MealPlans: repository.NewRepository[*MealPlanRow](db, repository.ModelHandlers[*MealPlanRow]{
			NewRecord:     func() *MealPlanRow { return &MealPlanRow{} },
			GetID:         func(r *MealPlanRow) uuid.UUID { return r.ID },
			SetID:         func(r *MealPlanRow, id uuid.UUID) { r.ID = id },
			GetIdentifier: func() string { return "id" },
		}),
		Shopping: repository.NewRepository[*ShoppingEntryRow](db, repository.ModelHandlers[*ShoppingEntryRow]{
			NewRecord:     func() *ShoppingEntryRow { return &ShoppingEntryRow{} },
			GetID:         func(r *ShoppingEntryRow) uuid.UUID { return r.ID },
			SetID:         func(r *ShoppingEntryRow, id uuid.UUID) { r.ID = id },
			GetIdentifier: func() string { return "name" },
		}),
	}
}

// Invalidating wraps every repository so successful writes invalidate the
// household they touched.
func (r Repositories) Invalidating(inv repositorycache.Invalidator, logger *slog.Logger) Repositories {
	opt := repositorycache.WithLogger(logger)
	return Repositories{
		Items:       repositorycache.New(r.Items, inv, (*InventoryItemRow).Household, opt),
		Locations:   repositorycache.New(r.Locations, inv, (*StockLocationRow).Household, opt),
		Recipes:     repositorycache.New(r.Recipes, inv, (*RecipeRow).Household, opt),
		Ingredients: repositorycache.New(r.Ingredients, inv, (*IngredientRow).Household, opt),
		MealPlans:   repositorycache.New(r.MealPlans, inv, (*MealPlanRow).Household, opt),
		Shopping:    repositorycache.New(r.Shopping, inv, (*ShoppingEntryRow).Household, opt),
	}
}
