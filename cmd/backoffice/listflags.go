package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/filter"
	"github.com/alfredjeanlab/backoffice/internal/listing"
)

// entityFlag maps an entity to its status filter flag and the filter key the
// flag sets.
var entityFlag = map[string]struct{ flag, key, usage string }{
	listing.EntityUsers:    {"verified", "emailVerified", "filter by verification (true, false or all)"},
	listing.EntityProducts: {"active", "active", "filter by status (true, false or all)"},
}

// addListFlags registers the filter, paging and sort flags of the list
// views of the given entities.
func addListFlags(cmd *cobra.Command, entities ...string) {
	f := cmd.Flags()
	f.StringP("search", "q", "", "substring search")
	for _, entity := range entities {
		if ef, ok := entityFlag[entity]; ok {
			f.String(ef.flag, "", ef.usage)
		}
	}
	f.Int("page", 0, "page number (default 1)")
	f.Int("page-size", 0, "rows per page (10, 25 or 50)")
	f.String("sort", "", "sort field")
	f.Bool("asc", false, "sort ascending (default descending)")
	f.String("view", "", "start from a saved view")
	f.String("query", "", "start from a raw query string, e.g. 'active=true&page=2'")
}

// listState builds the filter state of a list command: the saved view, then
// the raw query, then individual flags, each overriding the one before.
func listState(ctx context.Context, cmd *cobra.Command, entity string) (*filter.State, error) {
	cfg, ok := listing.Config(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (want users or products)", entity)
	}

	q := url.Values{}
	if name, _ := cmd.Flags().GetString("view"); name != "" {
		view, err := api.GetView(ctx, entity, name)
		if err != nil {
			return nil, fmt.Errorf("loading view %q: %w", name, err)
		}
		if q, err = url.ParseQuery(view.Query); err != nil {
			return nil, fmt.Errorf("view %q has a malformed query: %w", name, err)
		}
	}
	if raw, _ := cmd.Flags().GetString("query"); raw != "" {
		extra, err := url.ParseQuery(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed --query: %w", err)
		}
		for k, v := range extra {
			q[k] = v
		}
	}
	overlayListFlags(cmd, entity, q)

	state, err := filter.Decode(cfg, q)
	if err != nil {
		return nil, fmt.Errorf("invalid list options: %w", err)
	}
	return state, nil
}

// overlayListFlags copies every list flag the user set into q.
func overlayListFlags(cmd *cobra.Command, entity string, q url.Values) {
	f := cmd.Flags()
	set := func(flag, key string) {
		if f.Changed(flag) {
			q.Set(key, f.Lookup(flag).Value.String())
		}
	}
	set("search", "search")
	if ef, ok := entityFlag[entity]; ok && f.Lookup(ef.flag) != nil {
		set(ef.flag, ef.key)
	}
	set("page", filter.ParamPage)
	set("page-size", filter.ParamPageSize)
	set("sort", filter.ParamSortField)
	if f.Changed("asc") {
		asc, _ := f.GetBool("asc")
		dir := "desc"
		if asc {
			dir = "asc"
		}
		q.Set(filter.ParamSortDirection, dir)
	}
}
