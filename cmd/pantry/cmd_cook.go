package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-household-state/derive"
	"github.com/goliatone/go-household-state/state"
	"github.com/spf13/cobra"
)

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <meal-id>",
		Short: "Check whether a planned meal can be cooked from current stock",
		Args:  cobra.ExactArgs(1),
		RunE: c.forHousehold(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			v, err := c.container.Manager().ValidateCanCook(ctx, c.household, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if c.asJSON {
				if err := printJSON(w, v); err != nil {
					return err
				}
			} else {
				printValidation(cmd, args[0], v)
			}

			switch v.NotFound {
			case derive.NotFoundMeal:
				return fmt.Errorf("%w: %s", state.ErrMealNotFound, args[0])
			case derive.NotFoundRecipe:
				return fmt.Errorf("%w: meal %s", state.ErrRecipeNotFound, args[0])
			}
			return nil
		}),
	}
}

func printValidation(cmd *cobra.Command, mealID string, v derive.CookValidation) {
	w := cmd.OutOrStdout()
	switch {
	case v.NotFound != "":
		return
	case v.CanCook:
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("%s can be cooked", v.RecipeName)))
	default:
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%s (meal %s) is short of %d ingredient(s)", v.RecipeName, mealID, len(v.Missing))))
		printTable(w, shortfallHeaders, shortfallRows(v.Missing))
	}
}

func (c *cli) cookCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "cook <meal-id>",
		Short: "Deplete a planned meal's ingredients from stock and mark it cooked",
		Long: `cook takes each ingredient of the meal's recipe from stock, soonest expiring
location first, and marks the meal cooked in one transaction. Without --force
the meal is rejected when stock is short.`,
		Args: cobra.ExactArgs(1),
		RunE: c.forHousehold(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			res, err := c.container.Manager().CookMeal(ctx, c.household, args[0], force)
			var short *state.InsufficientIngredientsError
			if errors.As(err, &short) && !c.asJSON {
				fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("cannot cook %s, use --force to cook anyway", short.RecipeName)))
				printTable(w, shortfallHeaders, shortfallRows(short.Missing))
			}
			if err != nil {
				return err
			}

			if c.asJSON {
				return printJSON(w, res)
			}

			fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("cooked %s x%s", res.RecipeName, formatQuantity(res.Multiplier))))
			rows := make([][]string, 0, len(res.Depleted))
			for _, d := range res.Depleted {
				taken := formatQuantity(d.Taken)
				if d.Untracked {
					taken = "untracked"
				}
				rows = append(rows, []string{
					d.Ingredient, d.Unit, formatQuantity(d.Needed), taken, fmt.Sprint(len(d.Locations)),
				})
			}
			printTable(w, []string{"INGREDIENT", "UNIT", "NEEDED", "TAKEN", "LOCATIONS"}, rows)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "cook even when stock is short")
	return cmd
}

func (c *cli) invalidateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached derived state so the next read rebuilds it",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			m := c.container.Manager()
			if all {
				if err := m.InvalidateAll(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "dropped every cached household state")
				return nil
			}

			if c.household == "" {
				return errNoHousehold
			}
			if err := m.Invalidate(ctx, c.household); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped cached state of household %s\n", c.household)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "drop the state of every household")
	return cmd
}
