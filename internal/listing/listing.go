// Package listing declares the list views of the dashboard and maps their
// validated query params onto store queries.
package listing

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/alfredjeanlab/backoffice/internal/filter"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

// Entity names, as used in URLs and saved views.
const (
	EntityUsers    = "users"
	EntityProducts = "products"
)

var defaultPagination = &filter.Pagination{DefaultPageSize: 10, PageSizes: []int{10, 25, 50}}

// Users is the list view of users.
var Users = filter.MustConfig(EntityUsers,
	[]filter.Field{
		{Key: "search", Definition: filter.Definition{
			Kind:        filter.KindSearch,
			Label:       "Search",
			Placeholder: "Search users by name or email...",
		}},
		{Key: "emailVerified", Definition: filter.Definition{
			Kind:  filter.KindSelect,
			Label: "Verification Status",
			Options: []filter.Option{
				{Value: filter.AllValue, Label: "All Users"},
				{Value: "true", Label: "Verified"},
				{Value: "false", Label: "Unverified"},
			},
			Default: filter.StringValue(filter.AllValue),
		}},
	},
	[]filter.Sort{
		{Key: "name", SortDefinition: filter.SortDefinition{Label: "Name", Field: "name"}},
		{Key: "email", SortDefinition: filter.SortDefinition{Label: "Email", Field: "email"}},
		{Key: "createdAt", SortDefinition: filter.SortDefinition{Label: "Created Date", Field: "createdAt"}},
		{Key: "updatedAt", SortDefinition: filter.SortDefinition{Label: "Last Updated", Field: "updatedAt"}},
	},
	defaultPagination,
)

// Products is the list view of products.
var Products = filter.MustConfig(EntityProducts,
	[]filter.Field{
		{Key: "search", Definition: filter.Definition{
			Kind:        filter.KindSearch,
			Label:       "Search",
			Placeholder: "Search products by name, SKU, or description...",
		}},
		{Key: "active", Definition: filter.Definition{
			Kind:  filter.KindSelect,
			Label: "Status",
			Options: []filter.Option{
				{Value: filter.AllValue, Label: "All Products"},
				{Value: "true", Label: "Active"},
				{Value: "false", Label: "Inactive"},
			},
			Default: filter.StringValue(filter.AllValue),
		}},
	},
	[]filter.Sort{
		{Key: "name", SortDefinition: filter.SortDefinition{Label: "Name", Field: "name"}},
		{Key: "sku", SortDefinition: filter.SortDefinition{Label: "SKU", Field: "sku"}},
		{Key: "price", SortDefinition: filter.SortDefinition{Label: "Price", Field: "price"}},
		{Key: "createdAt", SortDefinition: filter.SortDefinition{Label: "Created Date", Field: "createdAt"}},
		{Key: "updatedAt", SortDefinition: filter.SortDefinition{Label: "Last Updated", Field: "updatedAt"}},
	},
	defaultPagination,
)

var (
	usersSchema    = filter.MustDeriveSchema(Users)
	productsSchema = filter.MustDeriveSchema(Products)
)

// columns maps record fields named by sort definitions to SQL columns. Only
// these columns ever reach an ORDER BY clause.
var columns = map[string]string{
	"name":      "name",
	"email":     "email",
	"sku":       "sku",
	"price":     "price",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// Entities lists every entity with a list view.
func Entities() []string { return []string{EntityUsers, EntityProducts} }

// Config returns the list view config of an entity.
func Config(entity string) (*filter.Config, bool) {
	switch entity {
	case EntityUsers:
		return Users, true
	case EntityProducts:
		return Products, true
	}
	return nil, false
}

// Schema returns the query validator of an entity.
func Schema(entity string) (*filter.Schema, bool) {
	switch entity {
	case EntityUsers:
		return usersSchema, true
	case EntityProducts:
		return productsSchema, true
	}
	return nil, false
}

// ParseUsers validates raw query parameters for the users list.
func ParseUsers(q url.Values) (model.UserQuery, error) {
	p, err := usersSchema.Parse(q)
	if err != nil {
		return model.UserQuery{}, err
	}
	return UserQuery(p)
}

// ParseProducts validates raw query parameters for the products list.
func ParseProducts(q url.Values) (model.ProductQuery, error) {
	p, err := productsSchema.Parse(q)
	if err != nil {
		return model.ProductQuery{}, err
	}
	return ProductQuery(p)
}

// UserQuery maps users list params onto a store query.
func UserQuery(p filter.Params) (model.UserQuery, error) {
	page, err := pageOf(Users, p)
	if err != nil {
		return model.UserQuery{}, err
	}
	verified, err := optionalBool(p, "emailVerified")
	if err != nil {
		return model.UserQuery{}, err
	}
	return model.UserQuery{Page: page, Search: p.Text("search"), EmailVerified: verified}, nil
}

// ProductQuery maps products list params onto a store query.
func ProductQuery(p filter.Params) (model.ProductQuery, error) {
	page, err := pageOf(Products, p)
	if err != nil {
		return model.ProductQuery{}, err
	}
	active, err := optionalBool(p, "active")
	if err != nil {
		return model.ProductQuery{}, err
	}
	return model.ProductQuery{Page: page, Search: p.Text("search"), Active: active}, nil
}

func pageOf(cfg *filter.Config, p filter.Params) (model.Page, error) {
	key, ok := cfg.Sort(p.SortField)
	if !ok {
		return model.Page{}, fmt.Errorf("listing %s: unknown sort field %q", cfg.Name(), p.SortField)
	}
	col, ok := columns[cfg.SortDefinition(key).Field]
	if !ok {
		return model.Page{}, fmt.Errorf("listing %s: sort field %q has no column", cfg.Name(), p.SortField)
	}
	dir := p.SortDirection
	if !dir.IsValid() {
		dir = model.SortDesc
	}
	return model.Page{Page: p.Page, PageSize: p.PageSize, SortColumn: col, SortDir: dir}, nil
}

// optionalBool reads a "true"/"false" select or boolean filter.
func optionalBool(p filter.Params, key string) (*bool, error) {
	v, ok := p.Get(key)
	if !ok {
		return nil, nil
	}
	if b, ok := v.AsBool(); ok {
		return &b, nil
	}
	s, _ := v.AsString()
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("listing: filter %s: %w", key, err)
	}
	return &b, nil
}
