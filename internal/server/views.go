package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/events"
	"github.com/alfredjeanlab/backoffice/internal/filter"
	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

// builtinViews are returned when no stored view of the same key exists.
var builtinViews = map[string]*model.SavedView{
	model.ViewKey(listing.EntityProducts, "active"): {
		Entity: listing.EntityProducts, Name: "active", Query: "active=true",
	},
	model.ViewKey(listing.EntityProducts, "recent"): {
		Entity: listing.EntityProducts, Name: "recent", Query: "sortField=updatedAt",
	},
	model.ViewKey(listing.EntityUsers, "unverified"): {
		Entity: listing.EntityUsers, Name: "unverified", Query: "emailVerified=false",
	},
}

// entityConfig resolves an entity name from a URL.
func entityConfig(entity string) (*filter.Config, error) {
	cfg, ok := listing.Config(entity)
	if !ok {
		return nil, notFoundError("Entity " + entity)
	}
	return cfg, nil
}

// normalizeView validates a view's query against the entity's filter config
// and rewrites it in canonical form, with defaults left out.
func normalizeView(cfg *filter.Config, query string) (string, error) {
	q, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return "", inputError("query is not a valid URL query string")
	}
	st, err := filter.Decode(cfg, q)
	if err != nil {
		return "", err
	}
	return st.Encode().Encode(), nil
}

// saveView stores a named view after normalizing its query.
func (s *BackofficeServer) saveView(ctx context.Context, who principal, entity, name, query string) (*model.SavedView, error) {
	cfg, err := entityConfig(entity)
	if err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, ":/") {
		return nil, inputError("view name must be non-empty and contain no ':' or '/'")
	}
	canonical, err := normalizeView(cfg, query)
	if err != nil {
		return nil, err
	}

	view := &model.SavedView{Entity: entity, Name: name, Query: canonical, CreatedBy: who.UserID}
	value, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("marshal view: %w", err)
	}
	if err := s.store.SetConfig(ctx, &model.Config{Key: model.ViewKey(entity, name), Value: value}); err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicViewSaved, model.ViewKey(entity, name), who.actor(), events.ViewSaved{View: view})
	return view, nil
}

// getView returns a stored view, falling back to the builtin of that name.
func (s *BackofficeServer) getView(ctx context.Context, entity, name string) (*model.SavedView, error) {
	if _, err := entityConfig(entity); err != nil {
		return nil, err
	}
	key := model.ViewKey(entity, name)
	c, err := s.store.GetConfig(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		if b, ok := builtinViews[key]; ok {
			return b, nil
		}
		return nil, notFoundError("View")
	}
	if err != nil {
		return nil, err
	}
	return decodeView(c)
}

// listViews returns stored views for entity merged with builtins that have
// not been overridden, sorted by name.
func (s *BackofficeServer) listViews(ctx context.Context, entity string) ([]*model.SavedView, error) {
	if _, err := entityConfig(entity); err != nil {
		return nil, err
	}
	configs, err := s.store.ListConfigs(ctx, "view:"+entity)
	if err != nil {
		return nil, err
	}

	views := make([]*model.SavedView, 0, len(configs))
	stored := make(map[string]struct{}, len(configs))
	for _, c := range configs {
		v, err := decodeView(c)
		if err != nil {
			return nil, err
		}
		stored[c.Key] = struct{}{}
		views = append(views, v)
	}
	for key, b := range builtinViews {
		if _, ok := stored[key]; !ok && b.Entity == entity {
			views = append(views, b)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views, nil
}

// deleteView removes a stored view. Builtins cannot be deleted.
func (s *BackofficeServer) deleteView(ctx context.Context, who principal, entity, name string) error {
	if _, err := entityConfig(entity); err != nil {
		return err
	}
	if err := s.store.DeleteConfig(ctx, model.ViewKey(entity, name)); err != nil {
		return notFound(err, "View")
	}
	s.recordAndPublish(ctx, events.TopicViewDeleted, model.ViewKey(entity, name), who.actor(), events.ViewDeleted{Entity: entity, Name: name})
	return nil
}

func decodeView(c *model.Config) (*model.SavedView, error) {
	var v model.SavedView
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return nil, fmt.Errorf("decode view %s: %w", c.Key, err)
	}
	return &v, nil
}
