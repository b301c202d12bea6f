package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/ui"
)

var viewsCmd = &cobra.Command{
	Use:     "views",
	Short:   "Manage saved list views",
	GroupID: "views",
}

var viewsListCmd = &cobra.Command{
	Use:   "list [entity]",
	Short: "List saved views (all entities by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entities := listing.Entities()
		if len(args) == 1 {
			entities = args
		}
		var all []*model.SavedView
		for _, e := range entities {
			views, err := api.ListViews(cmd.Context(), e)
			if err != nil {
				return err
			}
			all = append(all, views...)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), all)
		}
		rows := make([][]string, len(all))
		for i, v := range all {
			by := v.CreatedBy
			if by == "" {
				by = "-"
			}
			rows[i] = []string{v.Entity, v.Name, v.Query, by}
		}
		printTable(cmd.OutOrStdout(), []string{"ENTITY", "NAME", "QUERY", "CREATED BY"}, rows)
		return nil
	},
}

var viewsShowCmd = &cobra.Command{
	Use:   "show <entity> <name>",
	Short: "Show a saved view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := api.GetView(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), view)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Entity:  %s\n", view.Entity)
		fmt.Fprintf(w, "Name:    %s\n", view.Name)
		fmt.Fprintf(w, "Query:   %s\n", view.Query)
		if view.CreatedBy != "" {
			fmt.Fprintf(w, "By:      %s\n", view.CreatedBy)
		}
		return nil
	},
}

var viewsSaveCmd = &cobra.Command{
	Use:   "save <entity> <name>",
	Short: "Save the list options given as flags under a name",
	Example: `  backoffice views save products cheap-widgets --search widget --sort price --asc
  backoffice views save users pending --verified false`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := listState(cmd.Context(), cmd, args[0])
		if err != nil {
			return err
		}
		view, err := api.SaveView(cmd.Context(), args[0], args[1], state.Encode().Encode())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), view)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "view %s/%s saved (%s)\n", view.Entity, view.Name, view.Query)
		return nil
	},
}

var viewsDeleteCmd = &cobra.Command{
	Use:   "delete <entity> <name>",
	Short: "Delete a saved view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.DeleteView(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "view %s/%s deleted\n", args[0], args[1])
		return nil
	},
}

// filterDescription mirrors the filter config the server renders for a
// list view.
type filterDescription struct {
	Name    string `json:"name"`
	Filters []struct {
		Key     string `json:"key"`
		Type    string `json:"type"`
		Label   string `json:"label"`
		Options []struct {
			Value string `json:"value"`
			Label string `json:"label"`
		} `json:"options"`
	} `json:"filters"`
	Sorting []struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	} `json:"sorting"`
	Pagination struct {
		DefaultPageSize int   `json:"defaultPageSize"`
		PageSizes       []int `json:"pageSizes"`
	} `json:"pagination"`
}

var filtersCmd = &cobra.Command{
	Use:     "filters <entity>",
	Short:   "Describe the filters, sorts and page sizes of a list",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := api.Filters(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), raw)
		}
		var d filterDescription
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("decoding filters: %w", err)
		}
		printFilterDescription(cmd, &d)
		return nil
	},
}

func printFilterDescription(cmd *cobra.Command, d *filterDescription) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, ui.RenderHeader("Filters:"))
	for _, f := range d.Filters {
		line := fmt.Sprintf("  %-14s %-8s %s", f.Key, f.Type, f.Label)
		if len(f.Options) > 0 {
			opts := make([]string, len(f.Options))
			for i, o := range f.Options {
				opts[i] = o.Value
			}
			line += ui.RenderMuted(" [" + strings.Join(opts, "|") + "]")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, ui.RenderHeader("Sort fields:"))
	for i, s := range d.Sorting {
		def := ""
		if i == 0 {
			def = ui.RenderMuted(" (default)")
		}
		fmt.Fprintf(w, "  %-14s %s%s\n", s.Key, s.Label, def)
	}
	sizes := make([]string, len(d.Pagination.PageSizes))
	for i, n := range d.Pagination.PageSizes {
		sizes[i] = fmt.Sprint(n)
	}
	fmt.Fprintf(w, "%s %s (default %d)\n", ui.RenderHeader("Page sizes:"), strings.Join(sizes, ", "), d.Pagination.DefaultPageSize)
}

func init() {
	addListFlags(viewsSaveCmd, listing.Entities()...)

	viewsCmd.AddCommand(viewsListCmd)
	viewsCmd.AddCommand(viewsShowCmd)
	viewsCmd.AddCommand(viewsSaveCmd)
	viewsCmd.AddCommand(viewsDeleteCmd)
}
