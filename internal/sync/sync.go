// Package sync periodically exports users, products and saved views as JSONL
// to object storage or a git repository.
package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/backoffice/internal/store"
)

// Destination receives a complete JSONL export.
type Destination interface {
	Write(ctx context.Context, data []byte) error
}

// triggerSettle is how long a Trigger waits for more changes before the
// export runs, so a burst of edits costs one export.
const triggerSettle = 2 * time.Second

// Scheduler exports the store to its destinations every interval and
// shortly after each Trigger. A scheduled export whose records match the
// last one every destination accepted is skipped.
type Scheduler struct {
	store    store.Store
	dests    []Destination
	interval time.Duration
	settle   time.Duration
	log      *slog.Logger

	kick chan struct{}
	stop context.CancelFunc
	done chan struct{}

	mu   sync.Mutex
	sent [sha256.Size]byte // digest of the records last delivered everywhere
}

// NewScheduler returns a scheduler exporting s to dests. It does nothing
// until Start; RunOnce can be used without starting it.
func NewScheduler(s store.Store, dests []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    s,
		dests:    dests,
		interval: interval,
		settle:   triggerSettle,
		log:      logger,
		kick:     make(chan struct{}, 1),
	}
}

// Start exports once right away and then keeps exporting in the background
// until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop ends the background loop, waiting for an export in progress.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	s.stop()
	<-s.done
}

// Trigger requests an export. Requests arriving while one is pending are
// merged into it.
func (s *Scheduler) Trigger() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	s.scheduled(ctx)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	settle := time.NewTimer(time.Hour)
	settle.Stop()
	for {
		select {
		case <-ctx.Done():
			settle.Stop()
			return
		case <-s.kick:
			settle.Reset(s.settle)
		case <-settle.C:
			s.scheduled(ctx)
		case <-tick.C:
			s.scheduled(ctx)
		}
	}
}

// scheduled runs a background export and logs its outcome.
func (s *Scheduler) scheduled(ctx context.Context) {
	start := time.Now()
	n, skipped, err := s.export(ctx, false)
	switch {
	case err != nil:
		if ctx.Err() == nil {
			s.log.Error("export failed", "error", err)
		}
	case skipped:
		s.log.Debug("export unchanged, skipped")
	default:
		s.log.Info("export completed", "destinations", len(s.dests), "bytes", n, "duration", time.Since(start))
	}
}

// RunOnce exports to every destination, even when nothing changed, and
// returns the export size. Destinations are written concurrently; a failed
// destination does not stop the others, and every failure is returned.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	n, _, err := s.export(ctx, true)
	return n, err
}

func (s *Scheduler) export(ctx context.Context, force bool) (n int, skipped bool, err error) {
	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		return 0, false, fmt.Errorf("export: %w", err)
	}
	data := buf.Bytes()
	sum := recordsDigest(data)

	s.mu.Lock()
	unchanged := sum == s.sent
	s.mu.Unlock()
	if unchanged && !force {
		return len(data), true, nil
	}

	errs := make([]error, len(s.dests))
	var g errgroup.Group
	for i, d := range s.dests {
		g.Go(func() error {
			if err := d.Write(ctx, data); err != nil {
				errs[i] = fmt.Errorf("destination %s: %w", destName(i, d), err)
			}
			return nil
		})
	}
	g.Wait()
	if err := errors.Join(errs...); err != nil {
		return len(data), false, err
	}

	s.mu.Lock()
	s.sent = sum
	s.mu.Unlock()
	return len(data), false, nil
}

// recordsDigest hashes an export without its header line, which carries
// the export time.
func recordsDigest(data []byte) [sha256.Size]byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	}
	return sha256.Sum256(data)
}

func destName(i int, d Destination) string {
	if s, ok := d.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("#%d", i)
}
