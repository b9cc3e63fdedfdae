package model

import (
	"testing"
	"time"
)

func TestInventoryItem_TotalQuantity(t *testing.T) {
	item := InventoryItem{
		Name: "Eggs",
		Unit: "pc",
		Locations: []StockLocation{
			{Location: "Fridge", Quantity: 4},
			{Location: "Pantry", Quantity: 2.5},
		},
	}

	if got := item.TotalQuantity(); got != 6.5 {
		t.Errorf("expected total 6.5, got %v", got)
	}

	if got := (InventoryItem{}).TotalQuantity(); got != 0 {
		t.Errorf("expected total 0 for item without locations, got %v", got)
	}
}

func TestNormalizeKey(t *testing.T) {
	a := NormalizeKey(" Milk", "GAL")
	b := InventoryItem{Name: "milk", Unit: "gal"}.Key()
	if a != b {
		t.Errorf("expected %v to equal %v", a, b)
	}

	if NormalizeKey("Milk", "gal") == NormalizeKey("Milk", "l") {
		t.Error("same name with different units must be distinct keys")
	}

	if got := a.String(); got != "milk|gal" {
		t.Errorf("expected milk|gal, got %s", got)
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"olive oil":     "Olive Oil",
		"GREEK yogurt":  "Greek Yogurt",
		"5spice":        "5Spice",
		"salt-and-pepa": "Salt-And-Pepa",
		"":              "",
	}

	for in, want := range tests {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-12-25", "2024-12-25T18:30:00Z", "2024-12-25 07:00:00"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q) failed: %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseDate("25/12/2024"); err == nil {
		t.Error("expected error for unsupported layout")
	}

	empty, err := ParseOptionalDate("  ")
	if err != nil || empty != nil {
		t.Errorf("expected nil date and no error, got %v, %v", empty, err)
	}
}

func TestMealPlan_Reserves(t *testing.T) {
	today := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		plan MealPlan
		want bool
	}{
		{"today uncooked", MealPlan{Date: Date(today)}, true},
		{"future uncooked", MealPlan{Date: Date(today).AddDate(0, 0, 2)}, true},
		{"past uncooked", MealPlan{Date: Date(today).AddDate(0, 0, -1)}, false},
		{"today cooked", MealPlan{Date: Date(today), Cooked: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plan.Reserves(today); got != tt.want {
				t.Errorf("Reserves() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMealPlan_ValidateServingMultiplier(t *testing.T) {
	base := MealPlan{HouseholdID: "h1", RecipeID: "r1", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		multiplier float64
		wantError  bool
	}{
		{1, false},
		{0.5, false},
		{10, false},
		{10.0001, true},
		{0, true},
		{-1, true},
	}

	for _, tt := range tests {
		plan := base
		plan.ServingMultiplier = tt.multiplier
		err := plan.Validate()
		if tt.wantError && err == nil {
			t.Errorf("multiplier %v: expected validation error", tt.multiplier)
		}
		if !tt.wantError && err != nil {
			t.Errorf("multiplier %v: unexpected error %v", tt.multiplier, err)
		}
	}
}

func TestRecipe_ValidateIngredients(t *testing.T) {
	recipe := Recipe{
		HouseholdID: "h1",
		Name:        "Omelette",
		Ingredients: []Ingredient{{Name: "Eggs", Unit: "pc", Quantity: 0}},
	}
	if err := recipe.Validate(); err == nil {
		t.Error("expected error for zero ingredient quantity")
	}

	recipe.Ingredients[0].Quantity = 3
	if err := recipe.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNormalizeMultiplier(t *testing.T) {
	if got := NormalizeMultiplier(0); got != 1 {
		t.Errorf("expected default multiplier 1, got %v", got)
	}
	if got := NormalizeMultiplier(2.5); got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
}
