// Package events defines the change events emitted on every dashboard
// mutation and the publishers/subscribers that carry them over NATS.
package events

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// Event topic constants
const (
	TopicUserCreated  = "backoffice.user.created"
	TopicUserUpdated  = "backoffice.user.updated"
	TopicUserDeleted  = "backoffice.user.deleted"
	TopicUserVerified = "backoffice.user.verified"

	TopicProductCreated   = "backoffice.product.created"
	TopicProductUpdated   = "backoffice.product.updated"
	TopicProductDeleted   = "backoffice.product.deleted"
	TopicProductActivated = "backoffice.product.activated"

	TopicViewSaved   = "backoffice.view.saved"
	TopicViewDeleted = "backoffice.view.deleted"

	// TopicAll matches every backoffice topic.
	TopicAll = "backoffice.>"
)

// EntityTopic returns the wildcard subject for one entity's events, e.g.
// "backoffice.product.>" for "products".
func EntityTopic(entity string) string {
	return "backoffice." + strings.TrimSuffix(entity, "s") + ".>"
}

// Event types

type UserCreated struct {
	User *model.User `json:"user"`
}

type UserUpdated struct {
	User    *model.User    `json:"user"`
	Changes map[string]any `json:"changes"` // field name -> new value
}

type UserDeleted struct {
	UserID string `json:"user_id"`
}

type UserVerified struct {
	UserID   string `json:"user_id"`
	Verified bool   `json:"verified"`
}

type ProductCreated struct {
	Product *model.Product `json:"product"`
}

type ProductUpdated struct {
	Product *model.Product `json:"product"`
	Changes map[string]any `json:"changes"`
}

type ProductDeleted struct {
	ProductID string `json:"product_id"`
}

type ProductActivated struct {
	ProductID string `json:"product_id"`
	Active    bool   `json:"active"`
}

type ViewSaved struct {
	View *model.SavedView `json:"view"`
}

type ViewDeleted struct {
	Entity string `json:"entity"`
	Name   string `json:"name"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
