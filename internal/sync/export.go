package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/store"
)

// exportPageSize is the page size used to walk the list operations.
const exportPageSize = 100

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	UserCount    int       `json:"user_count"`
	ProductCount int       `json:"product_count"`
	ViewCount    int       `json:"view_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every user, product and saved view from the store as
// JSONL to w. Records are sorted by ID so unchanged data exports identically.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	users, err := collect(func(p model.Page) ([]*model.User, int, error) {
		return s.ListUsers(ctx, model.UserQuery{Page: p})
	})
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	products, err := collect(func(p model.Page) ([]*model.Product, int, error) {
		return s.ListProducts(ctx, model.ProductQuery{Page: p})
	})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	views, err := s.ListConfigs(ctx, "view")
	if err != nil {
		return fmt.Errorf("list views: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:      "1",
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		UserCount:    len(users),
		ProductCount: len(products),
		ViewCount:    len(views),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, u := range users {
		if err := enc.Encode(record{Type: "user", Data: u}); err != nil {
			return fmt.Errorf("encode user %s: %w", u.ID, err)
		}
	}
	for _, p := range products {
		if err := enc.Encode(record{Type: "product", Data: p}); err != nil {
			return fmt.Errorf("encode product %s: %w", p.ID, err)
		}
	}
	for _, c := range views {
		if err := enc.Encode(record{Type: "view", Data: c}); err != nil {
			return fmt.Errorf("encode view %s: %w", c.Key, err)
		}
	}

	return nil
}

// collect walks a paged list operation in creation order until every row
// counted by the first page has been read, or a page comes back empty.
func collect[T any](list func(model.Page) ([]T, int, error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		rows, total, err := list(model.Page{
			Page:       page,
			PageSize:   exportPageSize,
			SortColumn: "created_at",
			SortDir:    model.SortAsc,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) == 0 || len(all) >= total {
			return all, nil
		}
	}
}
