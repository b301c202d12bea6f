// Package postgres is the PostgreSQL implementation of store.Store.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Pool limits. The dashboard is a handful of admins, so a small pool with
// short-lived connections is plenty.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// Store is a store.Store on a PostgreSQL connection pool.
type Store struct {
	queries
	pool *sql.DB
}

var _ store.Store = (*Store)(nil)

// New connects to databaseURL and brings the schema up to date.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return newStore(db), nil
}

func newStore(db *sql.DB) *Store {
	return &Store{queries: queries{db: db}, pool: db}
}

// migrateUp applies the embedded migrations that have not run yet.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	target, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

// ListUsers reads the page and its total in one read-only transaction, so
// both see the same snapshot.
func (s *Store) ListUsers(ctx context.Context, q model.UserQuery) (users []*model.User, total int, err error) {
	err = s.snapshot(ctx, func(tx queries) error {
		users, total, err = tx.ListUsers(ctx, q)
		return err
	})
	return users, total, err
}

// ListProducts is ListUsers for products.
func (s *Store) ListProducts(ctx context.Context, q model.ProductQuery) (products []*model.Product, total int, err error) {
	err = s.snapshot(ctx, func(tx queries) error {
		products, total, err = tx.ListProducts(ctx, q)
		return err
	})
	return products, total, err
}

// RunInTransaction calls fn with a store bound to a new transaction, which
// is committed when fn returns nil and rolled back otherwise.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.inTx(ctx, nil, func(tx *sql.Tx) error {
		return fn(&txStore{queries{db: tx}})
	})
}

func (s *Store) snapshot(ctx context.Context, fn func(tx queries) error) error {
	return s.inTx(ctx, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		return fn(queries{db: tx})
	})
}

func (s *Store) inTx(ctx context.Context, opts *sql.TxOptions, fn func(*sql.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore is the store handed to RunInTransaction callbacks.
type txStore struct {
	queries
}

var _ store.Store = (*txStore)(nil)

// RunInTransaction joins the current transaction; there is no nesting.
func (t *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

// Close is a no-op; the pool belongs to the parent Store.
func (t *txStore) Close() error { return nil }
