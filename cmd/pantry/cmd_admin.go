package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/goliatone/go-household-state/model"
	"github.com/goliatone/go-household-state/state"
	"github.com/goliatone/go-household-state/storage/bunstore"
	"github.com/spf13/cobra"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and drop cached state",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if err := c.container.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}),
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Load a household snapshot file into the database",
		Long: `import stores every record of a JSON snapshot under its household. Record ids
that are not UUIDs are replaced; the mapping is printed. --household overrides the
household id found in the file.`,
		Args: cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			if c.household != "" {
				assignHousehold(&snap, c.household)
			}

			ids, err := state.RunAndInvalidate(ctx, c.container.Manager(), snap.HouseholdID,
				func(ctx context.Context) (bunstore.IDMap, error) {
					return c.container.Store().ImportSnapshot(ctx, snap)
				})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, ids)
			}
			fmt.Fprintf(w, "imported household %s: %d items, %d recipes, %d meal plans, %d shopping entries\n",
				snap.HouseholdID, len(snap.Inventory), len(snap.Recipes), len(snap.MealPlans), len(snap.ManualShopping))

			rows := make([][]string, 0, len(ids))
			for from, to := range ids {
				if from != to {
					rows = append(rows, []string{from, to})
				}
			}
			if len(rows) > 0 {
				printTable(w, []string{"FILE ID", "STORED ID"}, sortRows(rows))
			}
			return nil
		}),
	}
}

func readSnapshot(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}

// assignHousehold moves every record of snap to householdID.
func assignHousehold(snap *model.Snapshot, householdID string) {
	snap.HouseholdID = householdID
	for i := range snap.Inventory {
		snap.Inventory[i].HouseholdID = householdID
	}
	for i := range snap.Recipes {
		snap.Recipes[i].HouseholdID = householdID
	}
	for i := range snap.MealPlans {
		snap.MealPlans[i].HouseholdID = householdID
	}
}
