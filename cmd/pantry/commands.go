package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/goliatone/go-household-state/config"
	"github.com/goliatone/go-household-state/pkg/di"
	"github.com/spf13/cobra"
)

type containerFactory func() (*di.Container, error)

func defaultContainer() (*di.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return di.NewContainer(cfg, di.NewLogger(cfg, os.Stderr))
}

var errNoHousehold = errors.New("a household id is required: pass --household or set PANTRY_HOUSEHOLD")

// cli carries the flags shared by every command and the container of the
// command being run.
type cli struct {
	newContainer containerFactory
	container    *di.Container
	now          func() time.Time

	household string
	asJSON    bool
}

func newRootCmd(factory containerFactory) *cobra.Command {
	c := &cli{newContainer: factory, now: time.Now}

	root := &cobra.Command{
		Use:   "pantry",
		Short: "Inspect and update derived household pantry state",
		Long: `pantry reads the derived state of a household (shopping list, reservations,
ready-to-cook recipes, pantry health) and runs the writes that change it.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.household, "household", os.Getenv("PANTRY_HOUSEHOLD"), "household id")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		c.stateCmd(),
		c.shoppingCmd(),
		c.expiringCmd(),
		c.suggestCmd(),
		c.validateCmd(),
		c.cookCmd(),
		c.invalidateCmd(),
		c.migrateCmd(),
		c.importCmd(),
	)
	return root
}

type runFunc func(ctx context.Context, cmd *cobra.Command, args []string) error

// run opens a container for the duration of fn and closes it afterwards,
// whether fn fails or not.
func (c *cli) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		container, err := c.newContainer()
		if err != nil {
			return err
		}
		c.container = container
		defer func() {
			err = errors.Join(err, container.Close())
			c.container = nil
		}()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(ctx, cmd, args)
	}
}

// forHousehold wraps fn so it only runs when a household id was given.
func (c *cli) forHousehold(fn runFunc) func(*cobra.Command, []string) error {
	return c.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
		if c.household == "" {
			return errNoHousehold
		}
		return fn(ctx, cmd, args)
	})
}
