// Package server exposes the backoffice over HTTP: list, read and mutate
// users and products, manage saved views, and stream change events.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/blob"
	"github.com/alfredjeanlab/backoffice/internal/events"
	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/presence"
	"github.com/alfredjeanlab/backoffice/internal/store"
)

// BackofficeServer holds the dependencies shared by every handler.
type BackofficeServer struct {
	store     store.Store
	publisher events.Publisher
	hub       *eventHub
	now       func() time.Time

	// Presence is fed by the auth middleware on every signed-in request.
	Presence *presence.Tracker

	// Blobs stores user images. It defaults to blob.Unconfigured.
	Blobs blob.Store

	// SessionTTL is the lifetime of issued sessions.
	SessionTTL time.Duration

	// OnChange, when set, is called after every successful mutation. serve
	// wires it to the export scheduler's Trigger.
	OnChange func()
}

// NewBackofficeServer returns a new BackofficeServer backed by the given store and publisher.
func NewBackofficeServer(s store.Store, p events.Publisher) *BackofficeServer {
	return &BackofficeServer{
		store:      s,
		publisher:  p,
		hub:        newEventHub(),
		now:        time.Now,
		Presence:   presence.New(),
		Blobs:      blob.Unconfigured{},
		SessionTTL: DefaultSessionTTL,
	}
}

// recordAndPublish persists an event to the store, publishes it to NATS and
// fans it out to SSE clients. All three are best-effort; failures are logged
// but do not fail the mutation that caused them.
func (s *BackofficeServer) recordAndPublish(ctx context.Context, topic, recordID, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "record_id", recordID, "error", err)
		return
	}
	if err := s.store.RecordEvent(ctx, &model.Event{
		Topic:    topic,
		RecordID: recordID,
		Actor:    actor,
		Payload:  payload,
	}); err != nil {
		slog.Warn("failed to record event", "topic", topic, "record_id", recordID, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "record_id", recordID, "error", err)
	}
	s.hub.publish(topic, payload)
	if s.OnChange != nil {
		s.OnChange()
	}
}
