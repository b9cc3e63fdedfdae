package bunstore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-household-state/model"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IDMap maps record ids found in an imported snapshot to the ids they were
// stored under. Ids that already are UUIDs map to themselves.
type IDMap map[string]string

func (m IDMap) resolve(id string) uuid.UUID {
	if stored, ok := m[id]; ok {
		return uuid.MustParse(stored)
	}
	u, err := uuid.Parse(id)
	if err != nil {
		u = uuid.New()
	}
	if id != "" {
		m[id] = u.String()
	}
	return u
}

// ImportSnapshot stores every record of snap under its household in one
// transaction. Records are validated first and nothing is written when any
// of them is invalid. A meal plan without a serving multiplier gets the
// default of 1. Every id that is not a UUID, a recipe reference included,
// is stored under a fresh UUID; references to a recipe missing from the
// snapshot therefore point at no stored recipe.
func (s *Store) ImportSnapshot(ctx context.Context, snap model.Snapshot) (IDMap, error) {
	hid, err := parseID("household", snap.HouseholdID)
	if err != nil {
		return nil, err
	}
	snap.MealPlans = withDefaultMultipliers(snap.MealPlans)
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}

	ids := IDMap{}
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range snap.Inventory {
			if err := insertItem(ctx, tx, hid, ids, item); err != nil {
				return err
			}
		}
		for _, recipe := range snap.Recipes {
			if err := insertRecipe(ctx, tx, hid, ids, recipe); err != nil {
				return err
			}
		}
		for _, plan := range snap.MealPlans {
			row := &MealPlanRow{
				ID:                ids.resolve(plan.ID),
				HouseholdID:       hid,
				Date:              model.Date(plan.Date),
				RecipeID:          ids.resolve(plan.RecipeID),
				ServingMultiplier: plan.ServingMultiplier,
				Cooked:            plan.Cooked,
			}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return fmt.Errorf("insert meal plan %s: %w", plan.ID, err)
			}
		}
		for _, entry := range snap.ManualShopping {
			row := &ShoppingEntryRow{
				ID:             ids.resolve(entry.ID),
				HouseholdID:    hid,
				Name:           entry.Name,
				Quantity:       entry.Quantity,
				Unit:           entry.Unit,
				Category:       entry.Category,
				Checked:        entry.Checked,
				CheckedAt:      entry.CheckedAt,
				CheckedBy:      entry.CheckedBy,
				PreferredStore: entry.PreferredStore,
			}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return fmt.Errorf("insert shopping entry %s: %w", entry.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// withDefaultMultipliers returns a copy of plans where an absent multiplier
// is replaced by the default.
func withDefaultMultipliers(plans []model.MealPlan) []model.MealPlan {
	out := make([]model.MealPlan, len(plans))
	for i, plan := range plans {
		plan.ServingMultiplier = model.NormalizeMultiplier(plan.ServingMultiplier)
		out[i] = plan
	}
	return out
}

func insertItem(ctx context.Context, tx bun.Tx, hid uuid.UUID, ids IDMap, item model.InventoryItem) error {
	row := &InventoryItemRow{
		ID:             ids.resolve(item.ID),
		HouseholdID:    hid,
		Name:           item.Name,
		Unit:           item.Unit,
		Category:       item.Category,
		MinThreshold:   item.MinThreshold,
		PreferredStore: item.PreferredStore,
	}
	if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert inventory item %s: %w", item.Name, err)
	}

	if len(item.Locations) == 0 {
		return nil
	}
	locs := make([]*StockLocationRow, 0, len(item.Locations))
	for _, loc := range item.Locations {
		locs = append(locs, &StockLocationRow{
			ID:             ids.resolve(loc.ID),
			ItemID:         row.ID,
			HouseholdID:    hid,
			Location:       loc.Location,
			Quantity:       loc.Quantity,
			ExpirationDate: dateOnly(loc.ExpirationDate),
		})
	}
	if _, err := tx.NewInsert().Model(&locs).Exec(ctx); err != nil {
		return fmt.Errorf("insert stock locations for %s: %w", item.Name, err)
	}
	return nil
}

func insertRecipe(ctx context.Context, tx bun.Tx, hid uuid.UUID, ids IDMap, recipe model.Recipe) error {
	row := &RecipeRow{
		ID:           ids.resolve(recipe.ID),
		HouseholdID:  hid,
		Name:         recipe.Name,
		Servings:     recipe.Servings,
		Category:     recipe.Category,
		Tags:         recipe.Tags,
		Instructions: recipe.Instructions,
		Favorite:     recipe.Favorite,
	}
	if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert recipe %s: %w", recipe.Name, err)
	}

	if len(recipe.Ingredients) == 0 {
		return nil
	}
	ings := make([]*IngredientRow, 0, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		ings = append(ings, &IngredientRow{
			ID:          uuid.New(),
			RecipeID:    row.ID,
			HouseholdID: hid,
			Position:    i,
			Name:        ing.Name,
			Unit:        ing.Unit,
			Quantity:    ing.Quantity,
		})
	}
	if _, err := tx.NewInsert().Model(&ings).Exec(ctx); err != nil {
		return fmt.Errorf("insert ingredients for %s: %w", recipe.Name, err)
	}
	return nil
}

func validateSnapshot(snap model.Snapshot) error {
	for _, item := range snap.Inventory {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("inventory item %q: %w", item.Name, err)
		}
	}
	for _, recipe := range snap.Recipes {
		if err := recipe.Validate(); err != nil {
			return fmt.Errorf("recipe %q: %w", recipe.Name, err)
		}
	}
	for _, plan := range snap.MealPlans {
		if err := plan.Validate(); err != nil {
			return fmt.Errorf("meal plan %q: %w", plan.ID, err)
		}
	}
	for _, entry := range snap.ManualShopping {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("shopping entry %q: %w", entry.Name, err)
		}
	}
	return nil
}
