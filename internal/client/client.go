// Package client provides the interface the backoffice CLI uses to talk to a
// server and an HTTP/JSON implementation of it.
package client

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/presence"
)

// BackofficeClient is the interface that all CLI commands use to communicate
// with the backoffice server.
type BackofficeClient interface {
	// Users
	ListUsers(ctx context.Context, query url.Values) (*List[*model.User], error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, req *UserRequest) (*model.User, error)
	UpdateUser(ctx context.Context, id string, req *UserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	SetUserVerified(ctx context.Context, id string, verified bool) error
	UploadUserImage(ctx context.Context, id string, r io.Reader, contentType string) (*model.User, error)
	DeleteUserImage(ctx context.Context, id string) error

	// Products
	ListProducts(ctx context.Context, query url.Values) (*List[*model.Product], error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, req *ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, req *ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	SetProductActive(ctx context.Context, id string, active bool) error

	// Filters and saved views
	Filters(ctx context.Context, entity string) (json.RawMessage, error)
	ListViews(ctx context.Context, entity string) ([]*model.SavedView, error)
	GetView(ctx context.Context, entity, name string) (*model.SavedView, error)
	SaveView(ctx context.Context, entity, name, query string) (*model.SavedView, error)
	DeleteView(ctx context.Context, entity, name string) error

	// Events
	GetEvents(ctx context.Context, recordID string, limit int) ([]*model.Event, error)
	Stream(ctx context.Context, query url.Values, fn func(StreamEvent) error) error

	// Sessions and presence
	IssueSession(ctx context.Context, email string, ttl time.Duration) (*model.Session, error)
	Presence(ctx context.Context) ([]presence.Entry, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// List is one page of a list endpoint.
type List[T any] struct {
	Data       []T              `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// UserRequest holds the fields of a user create or update. Nil pointer
// fields are left out so updates only touch what was set.
type UserRequest struct {
	Name          *string `json:"name,omitempty"`
	Email         *string `json:"email,omitempty"`
	EmailVerified *bool   `json:"emailVerified,omitempty"`
}

// ProductRequest holds the fields of a product create or update. Nil pointer
// fields are left out.
type ProductRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	SKU         *string `json:"sku,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// StreamEvent is one server-sent change event.
type StreamEvent struct {
	ID    string
	Topic string
	Data  json.RawMessage
}
