package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/tui"
	"github.com/alfredjeanlab/backoffice/internal/ui"
)

var browseCmd = &cobra.Command{
	Use:     "browse <users|products>",
	Short:   "Browse a list interactively",
	Long: `Browse a list interactively. Filters, sorting and paging are driven from
the keyboard and the footer lists the keys. The list options given as flags
set the starting point, and --save stores wherever you end up as a view.`,
	GroupID:   "views",
	Args:      cobra.ExactArgs(1),
	ValidArgs: listing.Entities(),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity := args[0]
		load, err := pageLoader(entity)
		if err != nil {
			return err
		}
		if !ui.IsTerminal() {
			return fmt.Errorf("browse needs an interactive terminal; use '%s list' instead", entity)
		}
		state, err := listState(cmd.Context(), cmd, entity)
		if err != nil {
			return err
		}

		b := tui.NewBrowser(cmd.Context(), "Backoffice · "+entity, state, load)
		if err := tui.Run(b); err != nil {
			return err
		}

		if name, _ := cmd.Flags().GetString("save"); name != "" {
			view, err := api.SaveView(cmd.Context(), entity, name, b.Location())
			if err != nil {
				return fmt.Errorf("saving view: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "view %s/%s saved (%s)\n", view.Entity, view.Name, view.Query)
		}
		return nil
	},
}

// pageLoader returns the browser loader of an entity's list.
func pageLoader(entity string) (tui.Loader, error) {
	switch entity {
	case listing.EntityUsers:
		return func(ctx context.Context, q url.Values) (tui.Page, error) {
			list, err := api.ListUsers(ctx, q)
			if err != nil {
				return tui.Page{}, err
			}
			rows := make([][]string, len(list.Data))
			for i, u := range list.Data {
				rows[i] = userRow(u)
			}
			return tui.Page{Columns: userColumns, Rows: rows, Pagination: list.Pagination}, nil
		}, nil
	case listing.EntityProducts:
		return func(ctx context.Context, q url.Values) (tui.Page, error) {
			list, err := api.ListProducts(ctx, q)
			if err != nil {
				return tui.Page{}, err
			}
			rows := make([][]string, len(list.Data))
			for i, p := range list.Data {
				rows[i] = productRow(p)
			}
			return tui.Page{Columns: productColumns, Rows: rows, Pagination: list.Pagination}, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown entity %q (want users or products)", entity)
}

func init() {
	addListFlags(browseCmd, listing.Entities()...)
	browseCmd.Flags().String("save", "", "save the final view under this name on exit")
}
