package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-household-state/derive"
	"github.com/goliatone/go-household-state/loader"
	"github.com/goliatone/go-household-state/model"
	"github.com/shopspring/decimal"
)

var (
	// ErrMealNotFound is returned when a meal plan does not exist for the household.
	ErrMealNotFound = errors.New("meal not found")
	// ErrRecipeNotFound is returned when a meal plan points at a missing recipe.
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrMealAlreadyCooked is returned when cooking a meal that was cooked before.
	ErrMealAlreadyCooked = errors.New("meal already cooked")
)

// InsufficientIngredientsError rejects a cook request before any write.
type InsufficientIngredientsError struct {
	MealID     string
	RecipeName string
	Missing    []derive.Shortfall
}

func (e *InsufficientIngredientsError) Error() string {
	return fmt.Sprintf("cannot cook meal %s (%s): %d ingredient(s) short", e.MealID, e.RecipeName, len(e.Missing))
}

// Writer is the write side of the persistence backend, scoped to one
// transaction.
type Writer interface {
	GetMealPlan(ctx context.Context, householdID, mealID string) (model.MealPlan, bool, error)
	GetRecipe(ctx context.Context, householdID, recipeID string) (model.Recipe, bool, error)
	// FindInventoryItem matches name case-insensitively and unit after
	// lowercasing, and returns the item with its stock locations.
	FindInventoryItem(ctx context.Context, householdID, name, unit string) (model.InventoryItem, bool, error)
	UpdateStockLocation(ctx context.Context, locationID string, quantity float64) error
	SetMealCooked(ctx context.Context, mealID string, cooked bool) error
}

// Backend is everything the Manager needs from persistence.
type Backend interface {
	loader.Source
	// RunInTx runs fn in a transaction, committing when it returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error
}

// Depletion records what cooking took for one ingredient.
type Depletion struct {
	Ingredient string                  `json:"ingredient"`
	Unit       string                  `json:"unit"`
	Needed     float64                 `json:"needed"`
	Taken      float64                 `json:"taken"`
	Locations  []derive.LocationUpdate `json:"locations,omitempty"`
	// Untracked is set when no inventory item matched the ingredient.
	Untracked bool `json:"untracked,omitempty"`
}

// CookResult summarizes a cooked meal.
type CookResult struct {
	MealID     string      `json:"meal_id"`
	RecipeName string      `json:"recipe_name"`
	Multiplier float64     `json:"serving_multiplier"`
	Depleted   []Depletion `json:"depleted"`
}

// ValidateCanCook reports whether mealID can be cooked from current stock.
func (m *Manager) ValidateCanCook(ctx context.Context, householdID, mealID string) (derive.CookValidation, error) {
	hs, err := m.GetState(ctx, householdID)
	if err != nil {
		return derive.CookValidation{}, err
	}
	return hs.ValidateCanCook(mealID), nil
}

// CookMeal depletes the ingredients of a planned meal from stock, soonest
// expiring first, and marks the meal cooked. Unless force is set the meal
// is validated first and rejected with *InsufficientIngredientsError when
// stock is short. The writes run in one backend transaction and invalidate
// the household state when they commit.
func (m *Manager) CookMeal(ctx context.Context, householdID, mealID string, force bool) (*CookResult, error) {
	if !force {
		if err := m.checkCookable(ctx, householdID, mealID); err != nil {
			stateCookedMeals.WithLabelValues("rejected").Inc()
			return nil, err
		}
	}

	result, err := RunAndInvalidate(ctx, m, householdID, func(ctx context.Context) (*CookResult, error) {
		var out *CookResult
		err := m.backend.RunInTx(ctx, func(ctx context.Context, w Writer) error {
			res, err := cookInTx(ctx, w, householdID, mealID)
			out = res
			return err
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		stateCookedMeals.WithLabelValues("error").Inc()
		return nil, err
	}

	stateCookedMeals.WithLabelValues("cooked").Inc()
	m.logger.Info("meal cooked",
		"household_id", householdID,
		"meal_id", mealID,
		"recipe", result.RecipeName,
		"forced", force,
	)
	return result, nil
}

func (m *Manager) checkCookable(ctx context.Context, householdID, mealID string) error {
	v, err := m.ValidateCanCook(ctx, householdID, mealID)
	if err != nil {
		return err
	}

	switch v.NotFound {
	case derive.NotFoundMeal:
		return fmt.Errorf("%w: %s", ErrMealNotFound, mealID)
	case derive.NotFoundRecipe:
		return fmt.Errorf("%w: meal %s", ErrRecipeNotFound, mealID)
	}

	if !v.CanCook {
		return &InsufficientIngredientsError{
			MealID:     mealID,
			RecipeName: v.RecipeName,
			Missing:    v.Missing,
		}
	}
	return nil
}

func cookInTx(ctx context.Context, w Writer, householdID, mealID string) (*CookResult, error) {
	meal, ok, err := w.GetMealPlan(ctx, householdID, mealID)
	if err != nil {
		return nil, fmt.Errorf("get meal plan %s: %w", mealID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMealNotFound, mealID)
	}
	if meal.Cooked {
		return nil, fmt.Errorf("%w: %s", ErrMealAlreadyCooked, mealID)
	}

	recipe, ok, err := w.GetRecipe(ctx, householdID, meal.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("get recipe %s: %w", meal.RecipeID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: meal %s", ErrRecipeNotFound, mealID)
	}

	multiplier := model.NormalizeMultiplier(meal.ServingMultiplier)
	result := &CookResult{
		MealID:     mealID,
		RecipeName: recipe.Name,
		Multiplier: multiplier,
	}

	for _, ing := range recipe.Ingredients {
		needed := ing.Quantity * multiplier
		if ing.Name == "" || needed <= 0 {
			continue
		}

		d := Depletion{Ingredient: ing.Name, Unit: ing.Unit, Needed: needed}

		item, found, err := w.FindInventoryItem(ctx, householdID, ing.Name, ing.Unit)
		if err != nil {
			return nil, fmt.Errorf("find inventory item %s/%s: %w", ing.Name, ing.Unit, err)
		}
		if !found {
			d.Untracked = true
			result.Depleted = append(result.Depleted, d)
			continue
		}

		before := make(map[string]float64, len(item.Locations))
		for _, loc := range item.Locations {
			before[loc.ID] = loc.Quantity
		}

		for _, u := range derive.PlanDepletion(item.Locations, needed) {
			if err := w.UpdateStockLocation(ctx, u.LocationID, u.Quantity); err != nil {
				return nil, fmt.Errorf("update stock location %s: %w", u.LocationID, err)
			}
			d.Taken += before[u.LocationID] - u.Quantity
			d.Locations = append(d.Locations, u)
		}
		d.Taken = decimal.NewFromFloat(d.Taken).Round(2).InexactFloat64()
		result.Depleted = append(result.Depleted, d)
	}

	if err := w.SetMealCooked(ctx, mealID, true); err != nil {
		return nil, fmt.Errorf("mark meal %s cooked: %w", mealID, err)
	}

	return result, nil
}
