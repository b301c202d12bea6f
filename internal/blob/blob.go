// Package blob stores user images and exports in object storage. Google
// Cloud Storage is the primary backend; S3-compatible buckets are supported
// for deployments that already run one.
package blob

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrNotConfigured is returned by every operation of an Unconfigured store.
var ErrNotConfigured = errors.New("object storage is not configured")

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is an object store addressed by key.
type Store interface {
	// Put uploads r under key and returns the object's public URL.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Delete removes key. Missing objects yield ErrNotFound.
	Delete(ctx context.Context, key string) error
	// Name identifies the backend in logs.
	Name() string
}

// Unconfigured fails every call immediately with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Put(context.Context, string, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string) error { return ErrNotConfigured }

func (Unconfigured) Name() string { return "none" }

// Memory keeps objects in process. It backs tests and local development.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Object
}

// Object is a stored blob held by Memory.
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]Object)}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: data, ContentType: contentType}
	return "memory://" + key, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) Name() string { return "memory" }

// Get returns a stored object.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}
