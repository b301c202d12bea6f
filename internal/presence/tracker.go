// Package presence keeps the roster of people signed in to the dashboard.
//
// The server's auth middleware reports every authenticated request to a
// Tracker. Watch demotes quiet users to idle and later drops them.
package presence

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Entry is one user as shown by GET /v1/presence.
type Entry struct {
	UserID              string    `json:"userId"`
	Name                string    `json:"name,omitempty"`
	LastSeen            time.Time `json:"lastSeen"`
	FirstSeen           time.Time `json:"firstSeen"`
	LastRequest         string    `json:"lastRequest"`
	Sessions            int       `json:"sessions"`
	RemoteAddr          string    `json:"remoteAddr,omitempty"`
	UserAgent           string    `json:"userAgent,omitempty"`
	IdleSecs            float64   `json:"idleSecs"`
	RequestCount        int64     `json:"requestCount"`
	SessionDurationSecs float64   `json:"sessionDurationSecs"`
	Idle                bool      `json:"idle,omitempty"`
	IdleSince           time.Time `json:"idleSince,omitempty"`
}

// Activity is one authenticated request.
type Activity struct {
	UserID     string
	Name       string
	SessionID  string
	Method     string
	Path       string
	RemoteAddr string
	UserAgent  string
}

// IdlePolicy decides when Watch demotes and drops users. Zero fields take
// the defaults of 15m, 30m and one minute.
type IdlePolicy struct {
	After  time.Duration // quiet time before a user counts as idle
	Evict  time.Duration // idle time before a user leaves the roster
	Every  time.Duration // how often the roster is checked
	OnIdle func(userID string)
}

func (p IdlePolicy) withDefaults() IdlePolicy {
	if p.After <= 0 {
		p.After = 15 * time.Minute
	}
	if p.Evict <= 0 {
		p.Evict = 30 * time.Minute
	}
	if p.Every <= 0 {
		p.Every = time.Minute
	}
	return p
}

type visitor struct {
	name      string
	arrived   time.Time
	seen      time.Time
	request   string
	sessions  map[string]struct{}
	addr      string
	agent     string
	requests  int64
	idleSince time.Time // zero while active
}

func (v *visitor) entry(id string, now time.Time) Entry {
	return Entry{
		UserID:              id,
		Name:                v.name,
		LastSeen:            v.seen,
		FirstSeen:           v.arrived,
		LastRequest:         v.request,
		Sessions:            len(v.sessions),
		RemoteAddr:          v.addr,
		UserAgent:           v.agent,
		IdleSecs:            now.Sub(v.seen).Seconds(),
		RequestCount:        v.requests,
		SessionDurationSecs: now.Sub(v.arrived).Seconds(),
		Idle:                !v.idleSince.IsZero(),
		IdleSince:           v.idleSince,
	}
}

// Tracker is safe for concurrent use.
type Tracker struct {
	now func() time.Time

	mu       sync.RWMutex
	visitors map[string]*visitor
}

// New returns a tracker on the wall clock.
func New() *Tracker { return NewWithClock(time.Now) }

// NewWithClock returns a tracker that reads the time from now.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now, visitors: make(map[string]*visitor)}
}

// Record notes a request. Requests without a user are ignored.
func (t *Tracker) Record(a Activity) {
	if a.UserID == "" {
		return
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.visitors[a.UserID]
	if v == nil {
		v = &visitor{arrived: now, sessions: make(map[string]struct{})}
		t.visitors[a.UserID] = v
	}
	v.seen = now
	v.idleSince = time.Time{}
	v.requests++
	if a.Method != "" {
		v.request = a.Method + " " + a.Path
	}
	if a.SessionID != "" {
		v.sessions[a.SessionID] = struct{}{}
	}
	keep(&v.name, a.Name)
	keep(&v.addr, a.RemoteAddr)
	keep(&v.agent, a.UserAgent)
}

func keep(dst *string, s string) {
	if s != "" {
		*dst = s
	}
}

// Forget drops a signed-out session. The user goes with their last session.
func (t *Tracker) Forget(userID, sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v := t.visitors[userID]; v != nil {
		delete(v.sessions, sessionID)
		if len(v.sessions) == 0 {
			delete(t.visitors, userID)
		}
	}
}

// Roster lists users seen within maxQuiet, most recent first. A zero
// maxQuiet lists everyone.
func (t *Tracker) Roster(maxQuiet time.Duration) []Entry {
	now := t.now()
	t.mu.RLock()
	out := make([]Entry, 0, len(t.visitors))
	for id, v := range t.visitors {
		if maxQuiet > 0 && now.Sub(v.seen) > maxQuiet {
			continue
		}
		out = append(out, v.entry(id, now))
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int { return b.LastSeen.Compare(a.LastSeen) })
	return out
}

// Watch applies p to the roster until ctx is done.
func (t *Tracker) Watch(ctx context.Context, p IdlePolicy) {
	p = p.withDefaults()
	slog.Info("presence: watching for idle users", "after", p.After, "evict", p.Evict)
	ticker := time.NewTicker(p.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.expire(p)
		}
	}
}

// expire marks users quiet for p.After as idle and drops those idle for
// longer than p.Evict. OnIdle runs once per user, without the lock held.
func (t *Tracker) expire(p IdlePolicy) {
	now := t.now()
	var demoted []string

	t.mu.Lock()
	for id, v := range t.visitors {
		switch {
		case !v.idleSince.IsZero():
			if now.Sub(v.idleSince) > p.Evict {
				delete(t.visitors, id)
			}
		case now.Sub(v.seen) > p.After:
			v.idleSince = now
			demoted = append(demoted, id)
		}
	}
	t.mu.Unlock()

	for _, id := range demoted {
		slog.Debug("presence: user idle", "user", id)
		if p.OnIdle != nil {
			p.OnIdle(id)
		}
	}
}
