package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks a meal plan at the boundary. The serving multiplier must
// be greater than zero and at most MaxServingMultiplier.
func (m MealPlan) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.HouseholdID, validation.Required),
		validation.Field(&m.RecipeID, validation.Required),
		validation.Field(&m.Date, validation.Required),
		validation.Field(&m.ServingMultiplier, ServingMultiplierRules()...),
	)
}

// ServingMultiplierRules are the bounds applied to serving multipliers.
// Required rejects zero, which ozzo otherwise treats as empty and skips.
func ServingMultiplierRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("must be greater than 0"),
		validation.Min(0.0).Exclusive().Error("must be greater than 0"),
		validation.Max(MaxServingMultiplier).Error("must be no greater than 10"),
	}
}

func (i Ingredient) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.Quantity, validation.Required, validation.Min(0.0).Exclusive()),
	)
}

func (r Recipe) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.HouseholdID, validation.Required),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Servings, validation.Min(0)),
		validation.Field(&r.Ingredients),
	)
}

func (l StockLocation) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Location, validation.Required),
		validation.Field(&l.Quantity, validation.Min(0.0)),
	)
}

func (i InventoryItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.HouseholdID, validation.Required),
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.Unit, validation.Required),
		validation.Field(&i.MinThreshold, validation.Min(0.0)),
		validation.Field(&i.Locations),
	)
}

func (e ShoppingEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Quantity, validation.Min(0.0)),
		validation.Field(&e.Source, validation.In(SourceMeals, SourceThreshold, SourceMealsAndThreshold, SourceManual)),
	)
}
