package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/events"
)

const (
	// streamHistory is how many recent events are kept for Last-Event-ID
	// replay.
	streamHistory = 1000

	// streamBuffer is the per-subscriber backlog. A subscriber that falls
	// further behind is disconnected and must resume with Last-Event-ID.
	streamBuffer = 64

	streamKeepalive = 15 * time.Second
)

// streamEvent is one change as sent on the event stream.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// topicFilter is a set of NATS-style subject patterns. The empty filter
// matches every topic.
type topicFilter []string

func (f topicFilter) match(topic string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range f {
		if subjectMatches(p, topic) {
			return true
		}
	}
	return false
}

// subjectMatches reports whether subject matches pattern, where "*" stands
// for one dot-separated token and a trailing ">" for one or more.
func subjectMatches(pattern, subject string) bool {
	for {
		p, pRest, pMore := strings.Cut(pattern, ".")
		if p == ">" {
			return subject != ""
		}
		s, sRest, sMore := strings.Cut(subject, ".")
		if p != "*" && p != s {
			return false
		}
		if !pMore || !sMore {
			return pMore == sMore
		}
		pattern, subject = pRest, sRest
	}
}

// subscriber receives the events matching its filter. events is closed when
// the hub evicts the subscriber.
type subscriber struct {
	filter topicFilter
	events chan streamEvent
}

// eventHub fans change events out to stream subscribers and remembers the
// most recent ones for replay.
type eventHub struct {
	mu      sync.Mutex
	seq     uint64
	history []streamEvent
	subs    map[*subscriber]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[*subscriber]struct{})}
}

// publish assigns the next id to an event, records it and delivers it to
// every matching subscriber.
func (h *eventHub) publish(topic string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	e := streamEvent{ID: h.seq, Topic: topic, Data: data}
	if len(h.history) == streamHistory {
		copy(h.history, h.history[1:])
		h.history = h.history[:streamHistory-1]
	}
	h.history = append(h.history, e)

	for sub := range h.subs {
		if !sub.filter.match(topic) {
			continue
		}
		select {
		case sub.events <- e:
		default:
			delete(h.subs, sub)
			close(sub.events)
		}
	}
}

// attach registers a subscriber. When resume is set it also returns the
// remembered events after *resume that match the filter; registration and
// the snapshot happen under one lock, so nothing falls between them.
func (h *eventHub) attach(filter topicFilter, resume *uint64) (*subscriber, []streamEvent) {
	sub := &subscriber{filter: filter, events: make(chan streamEvent, streamBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	if resume == nil {
		return sub, nil
	}
	return sub, h.replay(*resume, filter)
}

// detach unregisters sub. Detaching an evicted subscriber is a no-op.
func (h *eventHub) detach(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.events)
	}
}

// replay returns the remembered events after id after that match filter.
// h.mu must be held.
func (h *eventHub) replay(after uint64, filter topicFilter) []streamEvent {
	var out []streamEvent
	for _, e := range h.history {
		if e.ID > after && filter.match(e.Topic) {
			out = append(out, e)
		}
	}
	return out
}

func writeStreamEvent(w io.Writer, e streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", e.ID, e.Topic, e.Data)
}

// handleEventStream handles GET /v1/events/stream.
func (s *BackofficeServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	filter, err := streamTopics(r)
	if err != nil {
		writeFailure(w, r, err, "Failed to open event stream")
		return
	}
	var resume *uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			resume = &id
		}
	}

	sub, backlog := s.hub.attach(filter, resume)
	defer s.hub.detach(sub)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	for _, e := range backlog {
		writeStreamEvent(w, e)
	}
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-sub.events:
			if !ok {
				// Evicted for falling behind; the client resumes from its
				// last id.
				return
			}
			writeStreamEvent(w, e)
			flusher.Flush()
		case <-keepalive.C:
			io.WriteString(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

// streamTopics reads the optional filters of a stream request: "topics" is
// a comma-separated list of patterns and "entity" adds that entity's
// wildcard.
func streamTopics(r *http.Request) (topicFilter, error) {
	q := r.URL.Query()
	var f topicFilter
	for _, t := range strings.Split(q.Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f = append(f, t)
		}
	}
	if entity := q.Get("entity"); entity != "" {
		if _, err := entityConfig(entity); err != nil {
			return nil, err
		}
		f = append(f, events.EntityTopic(entity))
	}
	return f, nil
}
