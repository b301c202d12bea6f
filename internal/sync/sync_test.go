package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/alfredjeanlab/backoffice/internal/blob"
	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/store/memory"
)

// recorder is a Destination that keeps every export it receives.
type recorder struct {
	mu      gosync.Mutex
	exports [][]byte
	fail    error
}

func (r *recorder) Write(_ context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports = append(r.exports, append([]byte(nil), data...))
	return r.fail
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exports)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.exports) == 0 {
		return ""
	}
	return string(r.exports[len(r.exports)-1])
}

// waitFor polls cond for up to a second.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	for deadline := time.Now().Add(time.Second); !cond(); {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_InitialExport(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	s := NewScheduler(seededStore(t), []Destination{rec}, time.Hour, quietLogger())
	s.Start()
	waitFor(t, "initial export", func() bool { return rec.count() == 1 })
	s.Stop()

	if lines := nonEmptyLines(rec.last()); len(lines) != 6 {
		t.Fatalf("export has %d lines, want 6", len(lines))
	}
}

func TestScheduler_SkipsUnchangedTicks(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	s := NewScheduler(seededStore(t), []Destination{rec}, 10*time.Millisecond, quietLogger())
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if n := rec.count(); n != 1 {
		t.Errorf("unchanged store exported %d times, want 1", n)
	}
}

func TestScheduler_TriggerAfterChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	ms := seededStore(t)
	rec := &recorder{}
	s := NewScheduler(ms, []Destination{rec}, time.Hour, quietLogger())
	s.settle = 20 * time.Millisecond
	s.Start()
	defer s.Stop()
	waitFor(t, "initial export", func() bool { return rec.count() == 1 })

	p := &model.Product{ID: "product_new", Name: "Lamp", Price: "30.00", SKU: "LMP-1", Active: true}
	if err := ms.CreateProduct(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	for range 5 {
		s.Trigger()
	}
	waitFor(t, "triggered export", func() bool { return rec.count() == 2 })
	if !strings.Contains(rec.last(), "product_new") {
		t.Error("triggered export lacks the new product")
	}

	time.Sleep(60 * time.Millisecond)
	if n := rec.count(); n != 2 {
		t.Errorf("burst of triggers exported %d times, want once", n-1)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	NewScheduler(memory.New(), nil, time.Minute, quietLogger()).Stop()
}

func TestRunOnce_AlwaysWrites(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(seededStore(t), []Destination{rec}, time.Minute, quietLogger())
	for range 2 {
		if _, err := s.RunOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if n := rec.count(); n != 2 {
		t.Errorf("RunOnce wrote %d times, want 2", n)
	}
}

func TestRunOnce_ReportsEveryFailure(t *testing.T) {
	errA, errB := errors.New("bucket gone"), errors.New("push rejected")
	a, ok, b := &recorder{fail: errA}, &recorder{}, &recorder{fail: errB}
	s := NewScheduler(memory.New(), []Destination{a, ok, b}, time.Minute, quietLogger())

	n, err := s.RunOnce(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("error = %v, want both failures", err)
	}
	if n == 0 {
		t.Error("export size not reported")
	}
	if ok.count() != 1 {
		t.Errorf("healthy destination written %d times, want 1", ok.count())
	}
}

func TestScheduler_RemembersOnlyDeliveredExports(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{fail: errors.New("down")}
	s := NewScheduler(seededStore(t), []Destination{rec}, time.Minute, quietLogger())

	for _, tc := range []struct {
		fail        error
		wantSkipped bool
	}{
		{errors.New("down"), false},
		{errors.New("down"), false}, // the failed export is retried
		{nil, false},
		{nil, true}, // delivered and unchanged
	} {
		rec.fail = tc.fail
		_, skipped, err := s.export(ctx, false)
		if (err != nil) != (tc.fail != nil) || skipped != tc.wantSkipped {
			t.Fatalf("export with fail=%v: skipped=%v err=%v", tc.fail, skipped, err)
		}
	}
	if n := rec.count(); n != 3 {
		t.Errorf("destination written %d times, want 3", n)
	}
}

func TestRecordsDigest_IgnoresHeader(t *testing.T) {
	a := recordsDigest([]byte("{\"timestamp\":\"1\"}\n{\"id\":1}\n"))
	b := recordsDigest([]byte("{\"timestamp\":\"2\"}\n{\"id\":1}\n"))
	c := recordsDigest([]byte("{\"timestamp\":\"2\"}\n{\"id\":2}\n"))
	if a != b {
		t.Error("digest depends on the header")
	}
	if b == c {
		t.Error("digest ignores the records")
	}
}

func TestBlobDestination(t *testing.T) {
	mem := blob.NewMemory()
	s := NewScheduler(seededStore(t), []Destination{NewBlobDestination(mem, "exports/backoffice.jsonl")}, time.Minute, quietLogger())

	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	obj, ok := mem.Get("exports/backoffice.jsonl")
	if !ok {
		t.Fatal("export object not written")
	}
	if lines := nonEmptyLines(string(obj.Data)); len(lines) != 6 {
		t.Fatalf("export object has %d lines, want 6", len(lines))
	}
}

func TestBlobDestination_Unconfigured(t *testing.T) {
	err := NewBlobDestination(blob.Unconfigured{}, "backoffice.jsonl").Write(context.Background(), []byte("{}\n"))
	if !errors.Is(err, blob.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}
