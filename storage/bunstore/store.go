package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-household-state/loader"
	"github.com/goliatone/go-household-state/model"
	"github.com/goliatone/go-household-state/state"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when a write targets a row that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID is returned for ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid id")
)

var (
	_ loader.Source = (*Store)(nil)
	_ state.Backend = (*Store)(nil)
	_ state.Writer  = (*writer)(nil)
)

// Store is the bun backed persistence layer of the household state engine.
type Store struct {
	db *bun.DB
}

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for repositories and migrations.
func (s *Store) DB() *bun.DB {
	return s.db
}

func parseID(kind, id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s %q", ErrInvalidID, kind, id)
	}
	return u, nil
}

func (s *Store) InventoryWithLocations(ctx context.Context, householdID string) ([]model.InventoryItem, error) {
	hid, err := parseID("household", householdID)
	if err != nil {
		return nil, err
	}

	rows, err := selectInventory(ctx, s.db, hid)
	if err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}

	items := make([]model.InventoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toModel())
	}
	return items, nil
}

func (s *Store) Recipes(ctx context.Context, householdID string) ([]model.Recipe, error) {
	hid, err := parseID("household", householdID)
	if err != nil {
		return nil, err
	}

	var rows []*RecipeRow
	err = s.db.NewSelect().
		Model(&rows).
		Relation("Ingredients", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ri.position")
		}).
		Where("r.household_id = ?", hid).
		Order("r.name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select recipes: %w", err)
	}

	recipes := make([]model.Recipe, 0, len(rows))
	for _, r := range rows {
		recipes = append(recipes, r.toModel())
	}
	return recipes, nil
}

func (s *Store) MealPlansFrom(ctx context.Context, householdID string, from time.Time) ([]model.MealPlan, error) {
	hid, err := parseID("household", householdID)
	if err != nil {
		return nil, err
	}

	var rows []*MealPlanRow
	err = s.db.NewSelect().
		Model(&rows).
		Where("mp.household_id = ?", hid).
		Where("mp.date >= ?", model.Date(from)).
		Order("mp.date", "mp.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select meal plans: %w", err)
	}

	plans := make([]model.MealPlan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.toModel())
	}
	return plans, nil
}

func (s *Store) ManualShoppingEntries(ctx context.Context, householdID string) ([]model.ShoppingEntry, error) {
	hid, err := parseID("household", householdID)
	if err != nil {
		return nil, err
	}

	var rows []*ShoppingEntryRow
	err = s.db.NewSelect().
		Model(&rows).
		Where("se.household_id = ?", hid).
		Order("se.name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select shopping entries: %w", err)
	}

	entries := make([]model.ShoppingEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toModel())
	}
	return entries, nil
}

// RunInTx runs fn in a database transaction. It commits when fn returns nil
// and rolls back otherwise.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, w state.Writer) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &writer{db: tx})
	})
}

// writer implements state.Writer over a transaction.
type writer struct {
	db bun.IDB
}

func (w *writer) GetMealPlan(ctx context.Context, householdID, mealID string) (model.MealPlan, bool, error) {
	hid, err := parseID("household", householdID)
	if err != nil {
		return model.MealPlan{}, false, err
	}
	id, err := uuid.Parse(mealID)
	if err != nil {
		return model.MealPlan{}, false, nil
	}

	row := new(MealPlanRow)
	err = w.db.NewSelect().
		Model(row).
		Where("mp.id = ?", id).
		Where("mp.household_id = ?", hid).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MealPlan{}, false, nil
	}
	if err != nil {
		return model.MealPlan{}, false, err
	}
	return row.toModel(), true, nil
}

func (w *writer) GetRecipe(ctx context.Context, householdID, recipeID string) (model.Recipe, bool, error) {
	hid, err := parseID("household", householdID)
	if err != nil {
		return model.Recipe{}, false, err
	}
	id, err := uuid.Parse(recipeID)
	if err != nil {
		return model.Recipe{}, false, nil
	}

	row := new(RecipeRow)
	err = w.db.NewSelect().
		Model(row).
		Relation("Ingredients", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ri.position")
		}).
		Where("r.id = ?", id).
		Where("r.household_id = ?", hid).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Recipe{}, false, nil
	}
	if err != nil {
		return model.Recipe{}, false, err
	}
	return row.toModel(), true, nil
}

func (w *writer) FindInventoryItem(ctx context.Context, householdID, name, unit string) (model.InventoryItem, bool, error) {
	hid, err := parseID("household", householdID)
	if err != nil {
		return model.InventoryItem{}, false, err
	}

	// Matched in Go with the same key derivation uses: SQL lower() only
	// folds ASCII and does not trim.
	rows, err := selectInventory(ctx, w.db, hid)
	if err != nil {
		return model.InventoryItem{}, false, err
	}

	want := model.NormalizeKey(name, unit)
	for _, r := range rows {
		item := r.toModel()
		if item.Key() == want {
			return item, true, nil
		}
	}
	return model.InventoryItem{}, false, nil
}

// selectInventory loads a household's items ordered by name and id, each with
// its stock locations ordered by expiration date and id. Locations without a
// date come last on every backend.
func selectInventory(ctx context.Context, db bun.IDB, hid uuid.UUID) ([]*InventoryItemRow, error) {
	var rows []*InventoryItemRow
	err := db.NewSelect().
		Model(&rows).
		Relation("Locations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("sl.expiration_date IS NULL").Order("sl.expiration_date", "sl.id")
		}).
		Where("ii.household_id = ?", hid).
		Order("ii.name", "ii.id").
		Scan(ctx)
	return rows, err
}

func (w *writer) UpdateStockLocation(ctx context.Context, locationID string, quantity float64) error {
	id, err := parseID("stock location", locationID)
	if err != nil {
		return err
	}

	res, err := w.db.NewUpdate().
		Model((*StockLocationRow)(nil)).
		Set("quantity = ?", quantity).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, "stock location", locationID)
}

func (w *writer) SetMealCooked(ctx context.Context, mealID string, cooked bool) error {
	id, err := parseID("meal plan", mealID)
	if err != nil {
		return err
	}

	res, err := w.db.NewUpdate().
		Model((*MealPlanRow)(nil)).
		Set("cooked = ?", cooked).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, "meal plan", mealID)
}

func expectAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}
