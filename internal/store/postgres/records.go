package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

func scanEvent(r row) (*model.Event, error) {
	var (
		e       model.Event
		actor   sql.NullString
		payload []byte
	)
	if err := r.Scan(&e.ID, &e.Topic, &e.RecordID, &actor, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Actor = actor.String
	if len(payload) > 0 {
		e.Payload = json.RawMessage(payload)
	}
	return &e, nil
}

func (q queries) RecordEvent(ctx context.Context, e *model.Event) error {
	return q.db.QueryRowContext(ctx, `
		INSERT INTO events (topic, record_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, e.RecordID, e.Actor, jsonb(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

// GetEvents lists events newest first, for one record or all of them.
func (q queries) GetEvents(ctx context.Context, recordID string, limit int) ([]*model.Event, error) {
	var w where
	if recordID != "" {
		w.add("record_id = " + w.arg(recordID))
	}
	query := `SELECT id, topic, record_id, actor, payload, created_at FROM events` + w.String() + ` ORDER BY id DESC`
	if limit > 0 {
		query += " LIMIT " + w.arg(limit)
	}
	rows, err := q.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanEvent)
}

func scanConfig(r row) (*model.Config, error) {
	var (
		c     model.Config
		value []byte
	)
	if err := r.Scan(&c.Key, &value, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Value = json.RawMessage(value)
	return &c, nil
}

// SetConfig upserts c by key.
func (q queries) SetConfig(ctx context.Context, c *model.Config) error {
	return q.db.QueryRowContext(ctx, `
		INSERT INTO configs (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING created_at, updated_at`,
		c.Key, []byte(c.Value),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (q queries) GetConfig(ctx context.Context, key string) (*model.Config, error) {
	return scanConfig(q.db.QueryRowContext(ctx,
		`SELECT key, value, created_at, updated_at FROM configs WHERE key = $1`, key))
}

// ListConfigs returns the entries whose key starts with namespace and a
// colon, ordered by key.
func (q queries) ListConfigs(ctx context.Context, namespace string) ([]*model.Config, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT key, value, created_at, updated_at FROM configs WHERE key LIKE $1 ORDER BY key`,
		likeEscaper.Replace(namespace)+":%")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanConfig)
}

func (q queries) DeleteConfig(ctx context.Context, key string) error {
	return q.execOne(ctx, `DELETE FROM configs WHERE key = $1`, key)
}
