package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-household-state/model"
)

// HouseholdID is the household used by the canned fixtures.
const HouseholdID = "4c1f9a52-8f0e-4d0a-9b43-2d5c3a1e7b10"

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadSnapshot loads a household snapshot fixture and validates every
// record in it, failing the test on the first invalid one.
func LoadSnapshot(t *testing.T, path string) model.Snapshot {
	t.Helper()

	var snap model.Snapshot
	LoadFixtureJSON(t, path, &snap)

	for _, item := range snap.Inventory {
		if err := item.Validate(); err != nil {
			t.Fatalf("invalid inventory item %q in %s: %v", item.Name, path, err)
		}
	}
	for _, recipe := range snap.Recipes {
		if err := recipe.Validate(); err != nil {
			t.Fatalf("invalid recipe %q in %s: %v", recipe.Name, path, err)
		}
	}
	for _, plan := range snap.MealPlans {
		if err := plan.Validate(); err != nil {
			t.Fatalf("invalid meal plan %q in %s: %v", plan.ID, path, err)
		}
	}

	return snap
}

// CompareWithGoldenJSON marshals actual and compares it with a golden file.
// If the golden file doesn't exist, it creates one with the actual data.
func CompareWithGoldenJSON(t *testing.T, path string, actual any) {
	t.Helper()

	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal JSON for golden file %s: %v", path, err)
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("Golden file %s does not exist, creating it", path)
			writeGolden(t, path, data)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(data) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, data)
	}
}

func writeGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write golden file to %s: %v", path, err)
	}
}

// FixedClock returns a clock that always reads at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Household returns a small, valid household snapshot anchored on today:
// eggs and milk in stock, an omelette recipe and one upcoming plan for it.
func Household(today time.Time) model.Snapshot {
	today = model.Date(today)
	soon := today.AddDate(0, 0, 2)
	later := today.AddDate(0, 0, 20)

	return model.Snapshot{
		HouseholdID: HouseholdID,
		Inventory: []model.InventoryItem{
			{
				ID:           "eggs",
				HouseholdID:  HouseholdID,
				Name:         "Eggs",
				Unit:         "pc",
				Category:     "Dairy",
				MinThreshold: 6,
				Locations: []model.StockLocation{
					{ID: "eggs-fridge", Location: "Fridge", Quantity: 4, ExpirationDate: &soon},
					{ID: "eggs-garage", Location: "Garage Fridge", Quantity: 6, ExpirationDate: &later},
				},
			},
			{
				ID:           "milk",
				HouseholdID:  HouseholdID,
				Name:         "Milk",
				Unit:         "gal",
				Category:     "Dairy",
				MinThreshold: 2,
				Locations: []model.StockLocation{
					{ID: "milk-fridge", Location: "Fridge", Quantity: 1, ExpirationDate: &soon},
				},
			},
		},
		Recipes: []model.Recipe{
			{
				ID:          "omelette",
				HouseholdID: HouseholdID,
				Name:        "Omelette",
				Servings:    1,
				Ingredients: []model.Ingredient{
					{Name: "Eggs", Unit: "pc", Quantity: 3},
					{Name: "Milk", Unit: "gal", Quantity: 0.25},
				},
			},
		},
		MealPlans: []model.MealPlan{
			{
				ID:                "breakfast",
				HouseholdID:       HouseholdID,
				Date:              today.AddDate(0, 0, 1),
				RecipeID:          "omelette",
				ServingMultiplier: 2,
			},
		},
		LoadedAt: today,
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
