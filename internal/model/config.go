package model

import (
	"encoding/json"
	"time"
)

// Config is a key-value configuration record stored as JSONB.
// Keys use the format "{namespace}:{name}"; saved views live under
// "view:{entity}:{name}".
type Config struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SavedView is the value stored for a "view:" config: a named, shareable
// encoding of one list view's filter state.
type SavedView struct {
	Entity    string `json:"entity"`
	Name      string `json:"name"`
	Query     string `json:"query"` // url-encoded filter state
	CreatedBy string `json:"createdBy,omitempty"`
}

// ViewKey returns the config key for a saved view.
func ViewKey(entity, name string) string {
	return "view:" + entity + ":" + name
}
