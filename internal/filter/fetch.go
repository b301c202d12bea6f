package filter

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrStale is returned by Fetcher.Fetch when a newer query was started
// before this one finished. The caller should drop the result.
var ErrStale = errors.New("filter: result superseded by a newer query")

// Fetcher runs list queries so that only the most recently requested params
// produce a result. Concurrent fetches of identical params share one call.
type Fetcher[T any] struct {
	fn    func(context.Context, Params) (T, error)
	group singleflight.Group

	mu     sync.Mutex
	latest string
}

// NewFetcher wraps fn.
func NewFetcher[T any](fn func(context.Context, Params) (T, error)) *Fetcher[T] {
	return &Fetcher[T]{fn: fn}
}

// Fetch runs the query for p. If another Fetch with different params starts
// before this one returns, this one fails with ErrStale.
func (f *Fetcher[T]) Fetch(ctx context.Context, p Params) (T, error) {
	key := p.Key()
	f.mu.Lock()
	f.latest = key
	f.mu.Unlock()

	v, err, _ := f.group.Do(key, func() (any, error) {
		return f.fn(ctx, p)
	})

	var zero T
	if !f.isLatest(key) {
		return zero, ErrStale
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Latest returns the key of the most recently requested params.
func (f *Fetcher[T]) Latest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func (f *Fetcher[T]) isLatest(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest == key
}
