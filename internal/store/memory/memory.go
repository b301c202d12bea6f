// Package memory implements store.Store in process. It serves tests and
// BACKOFFICE_DATABASE_URL=memory:// for local demos; nothing survives a
// restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/store"
)

// Store implements store.Store with maps guarded by a mutex.
type Store struct {
	mu sync.Mutex
	d  *data
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store stamped with the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty store that stamps records with now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{d: newData(now)}
}

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.createUser(user)
}

func (s *Store) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getUser(id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getUserByEmail(email)
}

func (s *Store) ListUsers(_ context.Context, q model.UserQuery) ([]*model.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, total := s.d.listUsers(q)
	return users, total, nil
}

func (s *Store) UpdateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.updateUser(user)
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.deleteUser(id)
}

func (s *Store) CreateProduct(_ context.Context, product *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.createProduct(product)
}

func (s *Store) GetProduct(_ context.Context, id string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getProduct(id)
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getProductBySKU(sku)
}

func (s *Store) ListProducts(_ context.Context, q model.ProductQuery) ([]*model.Product, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products, total := s.d.listProducts(q)
	return products, total, nil
}

func (s *Store) UpdateProduct(_ context.Context, product *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.updateProduct(product)
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.deleteProduct(id)
}

func (s *Store) CreateSession(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.createSession(session)
}

func (s *Store) GetSession(_ context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getSession(token)
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.deleteSession(token)
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.deleteExpiredSessions(now), nil
}

func (s *Store) RecordEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.recordEvent(event)
	return nil
}

func (s *Store) GetEvents(_ context.Context, recordID string, limit int) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getEvents(recordID, limit), nil
}

func (s *Store) SetConfig(_ context.Context, config *model.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.setConfig(config)
	return nil
}

func (s *Store) GetConfig(_ context.Context, key string) (*model.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.getConfig(key)
}

func (s *Store) ListConfigs(_ context.Context, namespace string) ([]*model.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.listConfigs(namespace), nil
}

func (s *Store) DeleteConfig(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.deleteConfig(key)
}

// RunInTransaction runs fn against a copy of the data and swaps it in when
// fn succeeds. Other callers block until fn returns.
func (s *Store) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{d: s.d.clone()}
	if err := fn(t); err != nil {
		return err
	}
	s.d = t.d
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// tx implements store.Store over a private copy of the data. The parent's
// lock is held for its whole lifetime.
type tx struct {
	d *data
}

// Compile-time check that tx implements store.Store.
var _ store.Store = (*tx)(nil)

func (t *tx) CreateUser(_ context.Context, user *model.User) error { return t.d.createUser(user) }

func (t *tx) GetUser(_ context.Context, id string) (*model.User, error) { return t.d.getUser(id) }

func (t *tx) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return t.d.getUserByEmail(email)
}

func (t *tx) ListUsers(_ context.Context, q model.UserQuery) ([]*model.User, int, error) {
	users, total := t.d.listUsers(q)
	return users, total, nil
}

func (t *tx) UpdateUser(_ context.Context, user *model.User) error { return t.d.updateUser(user) }

func (t *tx) DeleteUser(_ context.Context, id string) error { return t.d.deleteUser(id) }

func (t *tx) CreateProduct(_ context.Context, product *model.Product) error {
	return t.d.createProduct(product)
}

func (t *tx) GetProduct(_ context.Context, id string) (*model.Product, error) {
	return t.d.getProduct(id)
}

func (t *tx) GetProductBySKU(_ context.Context, sku string) (*model.Product, error) {
	return t.d.getProductBySKU(sku)
}

func (t *tx) ListProducts(_ context.Context, q model.ProductQuery) ([]*model.Product, int, error) {
	products, total := t.d.listProducts(q)
	return products, total, nil
}

func (t *tx) UpdateProduct(_ context.Context, product *model.Product) error {
	return t.d.updateProduct(product)
}

func (t *tx) DeleteProduct(_ context.Context, id string) error { return t.d.deleteProduct(id) }

func (t *tx) CreateSession(_ context.Context, session *model.Session) error {
	return t.d.createSession(session)
}

func (t *tx) GetSession(_ context.Context, token string) (*model.Session, error) {
	return t.d.getSession(token)
}

func (t *tx) DeleteSession(_ context.Context, token string) error { return t.d.deleteSession(token) }

func (t *tx) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	return t.d.deleteExpiredSessions(now), nil
}

func (t *tx) RecordEvent(_ context.Context, event *model.Event) error {
	t.d.recordEvent(event)
	return nil
}

func (t *tx) GetEvents(_ context.Context, recordID string, limit int) ([]*model.Event, error) {
	return t.d.getEvents(recordID, limit), nil
}

func (t *tx) SetConfig(_ context.Context, config *model.Config) error {
	t.d.setConfig(config)
	return nil
}

func (t *tx) GetConfig(_ context.Context, key string) (*model.Config, error) {
	return t.d.getConfig(key)
}

func (t *tx) ListConfigs(_ context.Context, namespace string) ([]*model.Config, error) {
	return t.d.listConfigs(namespace), nil
}

func (t *tx) DeleteConfig(_ context.Context, key string) error { return t.d.deleteConfig(key) }

// RunInTransaction on a tx reuses it (no nesting).
func (t *tx) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (t *tx) Close() error { return nil }
