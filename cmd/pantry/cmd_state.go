package main

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-household-state/derive"
	"github.com/goliatone/go-household-state/model"
	"github.com/goliatone/go-household-state/state"
	"github.com/spf13/cobra"
)

type reservationView struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

type stateView struct {
	HouseholdID     string            `json:"household_id"`
	FromCache       bool              `json:"from_cache"`
	ComputedAt      time.Time         `json:"computed_at"`
	Health          derive.Health     `json:"health"`
	ReadyToCook     []string          `json:"ready_to_cook"`
	Reserved        []reservationView `json:"reserved"`
	ShoppingEntries int               `json:"shopping_entries"`
}

func newStateView(householdID string, hs *state.HouseholdState) stateView {
	names := make(map[string]string, len(hs.Snapshot.Recipes))
	for _, r := range hs.Snapshot.Recipes {
		names[r.ID] = r.Name
	}

	view := stateView{
		HouseholdID:     householdID,
		FromCache:       hs.FromCache,
		ComputedAt:      hs.State.ComputedAt,
		Health:          hs.State.Health,
		ReadyToCook:     make([]string, 0, len(hs.State.ReadyToCook)),
		Reserved:        make([]reservationView, 0, len(hs.State.Reserved)),
		ShoppingEntries: len(hs.State.ShoppingList),
	}
	for _, id := range hs.State.ReadyToCook {
		view.ReadyToCook = append(view.ReadyToCook, cmp.Or(names[id], id))
	}
	for key, qty := range hs.State.Reserved {
		view.Reserved = append(view.Reserved, reservationView{Name: key.Name, Unit: key.Unit, Quantity: qty})
	}
	slices.SortFunc(view.Reserved, func(a, b reservationView) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Unit, b.Unit))
	})
	return view
}

func (c *cli) stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the derived state of a household",
		Args:  cobra.NoArgs,
		RunE:  c.forHousehold(c.showState),
	}
}

func (c *cli) showState(ctx context.Context, cmd *cobra.Command, _ []string) error {
	hs, err := c.container.Manager().GetState(ctx, c.household)
	if err != nil {
		return err
	}

	view := newStateView(c.household, hs)
	w := cmd.OutOrStdout()
	if c.asJSON {
		return printJSON(w, view)
	}

	printHeading(w, "Household "+view.HouseholdID)
	fmt.Fprintf(w, "computed %s (cached: %t)\n", view.ComputedAt.Format(time.RFC3339), view.FromCache)
	fmt.Fprintf(w, "health %d/100 %s: %d items, %d below threshold, %d expiring soon\n",
		view.Health.Score, view.Health.Status, view.Health.TotalItems, view.Health.BelowThreshold, view.Health.ExpiringSoon)
	fmt.Fprintf(w, "shopping list: %d entries\n", view.ShoppingEntries)

	printHeading(w, "Ready to cook")
	rows := make([][]string, 0, len(view.ReadyToCook))
	for _, name := range view.ReadyToCook {
		rows = append(rows, []string{name})
	}
	printTable(w, []string{"RECIPE"}, rows)

	printHeading(w, "Reserved by planned meals")
	rows = make([][]string, 0, len(view.Reserved))
	for _, r := range view.Reserved {
		rows = append(rows, []string{r.Name, r.Unit, formatQuantity(r.Quantity)})
	}
	printTable(w, []string{"ITEM", "UNIT", "QUANTITY"}, rows)
	return nil
}

func (c *cli) shoppingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shopping",
		Short: "Show the shopping list of a household",
		Args:  cobra.NoArgs,
		RunE: c.forHousehold(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			hs, err := c.container.Manager().GetState(ctx, c.household)
			if err != nil {
				return err
			}

			list := hs.ShoppingList()
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, list)
			}

			rows := make([][]string, 0, len(list))
			for _, e := range list {
				rows = append(rows, []string{
					e.Name, formatQuantity(e.Quantity), e.Unit, e.Category, string(e.Source), checkMark(e.Checked),
				})
			}
			printTable(w, []string{"NAME", "QUANTITY", "UNIT", "CATEGORY", "SOURCE", "CHECKED"}, rows)
			return nil
		}),
	}
}

func checkMark(checked bool) string {
	if checked {
		return "x"
	}
	return ""
}

func (c *cli) expiringCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "List stock that expires soon, expired stock included",
		Args:  cobra.NoArgs,
		RunE: c.forHousehold(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			hs, err := c.container.Manager().GetState(ctx, c.household)
			if err != nil {
				return err
			}

			expiring := slices.Collect(hs.ExpiringSoon(c.now(), days))
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, expiring)
			}

			rows := make([][]string, 0, len(expiring))
			for _, e := range expiring {
				rows = append(rows, []string{
					e.ItemName, e.Location, formatQuantity(e.Quantity), e.Unit,
					e.ExpiresOn.Format(time.DateOnly), expiresIn(e),
				})
			}
			printTable(w, []string{"ITEM", "LOCATION", "QUANTITY", "UNIT", "EXPIRES", "IN"}, rows)
			return nil
		}),
	}
	cmd.Flags().IntVar(&days, "days", derive.DefaultExpiringWindow, "look-ahead window in days")
	return cmd
}

func expiresIn(e derive.ExpiringLocation) string {
	switch {
	case e.IsExpired:
		return warnStyle.Render("expired")
	case e.ExpiresInDays == 0:
		return warnStyle.Render("today")
	default:
		return fmt.Sprintf("%dd", e.ExpiresInDays)
	}
}

func (c *cli) suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Suggest recipes that use up expiring stock",
		Args:  cobra.NoArgs,
		RunE: c.forHousehold(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			hs, err := c.container.Manager().GetState(ctx, c.household)
			if err != nil {
				return err
			}

			suggestions := hs.Suggestions(c.now())
			w := cmd.OutOrStdout()
			if c.asJSON {
				return printJSON(w, suggestions)
			}

			rows := make([][]string, 0, len(suggestions))
			for _, s := range suggestions {
				rows = append(rows, []string{
					s.ExpiringItem, fmt.Sprintf("%dd", s.ExpiresInDays), recipeList(s.Recipes),
				})
			}
			printTable(w, []string{"ITEM", "EXPIRES IN", "RECIPES"}, rows)
			return nil
		}),
	}
}

// recipeList joins recipe names, marking the ones that can be cooked now.
func recipeList(recipes []derive.SuggestedRecipe) string {
	if len(recipes) == 0 {
		return "-"
	}
	names := make([]string, 0, len(recipes))
	for _, r := range recipes {
		if r.ReadyToCook {
			names = append(names, okStyle.Render(r.Name+" (ready)"))
			continue
		}
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}

func shortfallRows(missing []derive.Shortfall) [][]string {
	rows := make([][]string, 0, len(missing))
	for _, m := range missing {
		rows = append(rows, []string{
			model.TitleCase(m.Ingredient), m.Unit,
			formatQuantity(m.Needed), formatQuantity(m.Available), formatQuantity(m.Short),
		})
	}
	return rows
}

var shortfallHeaders = []string{"INGREDIENT", "UNIT", "NEEDED", "AVAILABLE", "SHORT"}
