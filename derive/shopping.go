package derive

import (
	"sort"

	"github.com/goliatone/go-household-state/model"
)

// shoppingList runs the three phases over one accumulating list:
// meal shortfalls, threshold gaps (merged onto shortfalls of the same key)
// and finally manual entries, which are never merged.
func shoppingList(snap model.Snapshot, idx index, reserved map[model.ItemKey]float64) []model.ShoppingEntry {
	list := make([]model.ShoppingEntry, 0, len(reserved)+len(snap.ManualShopping))
	seen := make(map[model.ItemKey]int)

	for _, key := range sortedKeys(reserved) {
		item := idx.items[key]
		shortfall := round2(max(0, reserved[key]-idx.available(key)))
		if shortfall <= 0 {
			continue
		}

		entry := model.ShoppingEntry{
			Name:      model.TitleCase(key.Name),
			Quantity:  shortfall,
			Unit:      key.Unit,
			Category:  model.CategoryOther,
			Source:    model.SourceMeals,
			Breakdown: map[string]float64{model.BreakdownMeals: shortfall},
		}
		if item != nil {
			entry.Category = model.CategoryOrDefault(item.Category)
			entry.PreferredStore = item.PreferredStore
		}
		seen[key] = len(list)
		list = append(list, entry)
	}

	for _, item := range snap.Inventory {
		if item.MinThreshold <= 0 {
			continue
		}
		key := item.Key()
		// Stock level once the currently planned meals have been cooked.
		afterCooking := max(0, item.TotalQuantity()-reserved[key])
		gap := round2(max(0, item.MinThreshold-afterCooking))
		if gap <= 0 {
			continue
		}

		if pos, ok := seen[key]; ok {
			existing := &list[pos]
			mealQty := existing.Quantity
			existing.Quantity = round2(mealQty + gap)
			existing.Source = model.SourceMealsAndThreshold
			existing.Breakdown = map[string]float64{
				model.BreakdownMeals:     mealQty,
				model.BreakdownThreshold: gap,
			}
			if existing.PreferredStore == nil && item.PreferredStore != nil {
				existing.PreferredStore = item.PreferredStore
			}
			continue
		}

		list = append(list, model.ShoppingEntry{
			Name:           model.TitleCase(item.Name),
			Quantity:       gap,
			Unit:           item.Unit,
			Category:       model.CategoryOrDefault(item.Category),
			Source:         model.SourceThreshold,
			PreferredStore: item.PreferredStore,
			Breakdown:      map[string]float64{model.BreakdownThreshold: gap},
		})
	}

	list = append(list, snap.ManualShopping...)

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Category != list[j].Category {
			return list[i].Category < list[j].Category
		}
		return list[i].Name < list[j].Name
	})

	return list
}
