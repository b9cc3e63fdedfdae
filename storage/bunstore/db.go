package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to driver/dsn and wraps the pool in a bun.DB with the
// matching dialect. SQLite in-memory databases are pinned to a single
// connection so every query sees the same database.
func Open(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
			sqldb.SetMaxOpenConns(1)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil

	case DriverPostgres, "postgresql", "pg":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

var models = []any{
	(*InventoryItemRow)(nil),
	(*StockLocationRow)(nil),
	(*RecipeRow)(nil),
	(*IngredientRow)(nil),
	(*MealPlanRow)(nil),
	(*ShoppingEntryRow)(nil),
}

type index struct {
	model   any
	name    string
	columns []string
}

var indexes = []index{
	{(*InventoryItemRow)(nil), "idx_inventory_items_household", []string{"household_id"}},
	{(*StockLocationRow)(nil), "idx_stock_locations_item", []string{"item_id"}},
	{(*RecipeRow)(nil), "idx_recipes_household", []string{"household_id"}},
	{(*IngredientRow)(nil), "idx_recipe_ingredients_recipe", []string{"recipe_id"}},
	{(*MealPlanRow)(nil), "idx_meal_plans_household_date", []string{"household_id", "date"}},
	{(*ShoppingEntryRow)(nil), "idx_shopping_entries_household", []string{"household_id"}},
}

// CreateSchema creates every table and index that does not exist yet.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	for _, idx := range indexes {
		q := db.NewCreateIndex().Model(idx.model).Index(idx.name).IfNotExists()
		for _, col := range idx.columns {
			q = q.Column(col)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
