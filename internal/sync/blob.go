package sync

import (
	"bytes"
	"context"
	"fmt"

	"github.com/alfredjeanlab/backoffice/internal/blob"
)

// BlobDestination writes the JSONL export to an object in a blob store.
type BlobDestination struct {
	store blob.Store
	key   string
}

// NewBlobDestination creates a destination writing to key in s.
func NewBlobDestination(s blob.Store, key string) *BlobDestination {
	return &BlobDestination{store: s, key: key}
}

// Write uploads data as the configured object.
func (d *BlobDestination) Write(ctx context.Context, data []byte) error {
	if _, err := d.store.Put(ctx, d.key, bytes.NewReader(data), "application/x-ndjson"); err != nil {
		return fmt.Errorf("%s put %s: %w", d.store.Name(), d.key, err)
	}
	return nil
}

func (d *BlobDestination) String() string { return d.store.Name() + ":" + d.key }
