package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/client"
	"github.com/alfredjeanlab/backoffice/internal/listing"
)

// newListCmd returns a command carrying the list flags of every entity,
// parsed from args.
func newListCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addListFlags(cmd, listing.Entities()...)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v): %v", args, err)
	}
	return cmd
}

// serveView points api at a server that answers every view lookup with
// the given query.
func serveView(t *testing.T, query string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/views/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"entity":"products","name":"saved","query":"` + query + `"}}`))
	}))
	t.Cleanup(srv.Close)

	prev := api
	api = client.NewHTTPClient(srv.URL, "")
	t.Cleanup(func() { api = prev })
}

func TestListState(t *testing.T) {
	tests := []struct {
		name   string
		entity string
		args   []string
		view   string
		want   string
	}{
		{
			name:   "defaults",
			entity: listing.EntityProducts,
			want:   "",
		},
		{
			name:   "flags",
			entity: listing.EntityProducts,
			args:   []string{"-q", "widget", "--active", "true", "--sort", "price", "--asc", "--page", "2"},
			want:   "active=true&page=2&search=widget&sortDirection=asc&sortField=price",
		},
		{
			name:   "user status flag",
			entity: listing.EntityUsers,
			args:   []string{"--verified", "false", "--page-size", "25"},
			want:   "emailVerified=false&pageSize=25",
		},
		{
			name:   "status flag of the other entity is ignored",
			entity: listing.EntityUsers,
			args:   []string{"--active", "true"},
			want:   "",
		},
		{
			name:   "flags override the raw query",
			entity: listing.EntityProducts,
			args:   []string{"--query", "page=3&search=x", "--page", "2"},
			want:   "page=2&search=x",
		},
		{
			name:   "descending is the default",
			entity: listing.EntityProducts,
			args:   []string{"--query", "sortDirection=asc", "--asc=false"},
			want:   "",
		},
		{
			name:   "saved view then flags",
			entity: listing.EntityProducts,
			view:   "active=true&sortField=price",
			args:   []string{"--view", "saved", "--asc"},
			want:   "active=true&sortDirection=asc&sortField=price",
		},
		{
			name:   "raw query overrides the view",
			entity: listing.EntityProducts,
			view:   "active=true&search=old",
			args:   []string{"--view", "saved", "--query", "search=new"},
			want:   "active=true&search=new",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.view != "" {
				serveView(t, tt.view)
			}
			cmd := newListCmd(t, tt.args...)
			state, err := listState(context.Background(), cmd, tt.entity)
			if err != nil {
				t.Fatalf("listState: %v", err)
			}
			if got := state.Encode().Encode(); got != tt.want {
				t.Errorf("state = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListState_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entity  string
		args    []string
		wantErr string
	}{
		{"unknown entity", "orders", nil, `unknown entity "orders"`},
		{"bad page size", listing.EntityProducts, []string{"--page-size", "0"}, "invalid list options"},
		{"unknown sort", listing.EntityUsers, []string{"--sort", "price"}, "invalid list options"},
		{"bad select value", listing.EntityProducts, []string{"--active", "maybe"}, "invalid list options"},
		{"malformed query", listing.EntityProducts, []string{"--query", "a=%zz"}, "malformed --query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newListCmd(t, tt.args...)
			_, err := listState(context.Background(), cmd, tt.entity)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
