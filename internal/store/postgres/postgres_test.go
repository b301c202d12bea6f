package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var (
	userRowColumns    = []string{"id", "name", "email", "email_verified", "image", "created_at", "updated_at"}
	productRowColumns = []string{
		"id", "name", "description", "price", "sku", "active",
		"created_at", "updated_at", "created_by", "updated_by",
	}
)

func boolPtr(b bool) *bool { return &b }

func TestOrderClause(t *testing.T) {
	for _, tc := range []struct {
		page model.Page
		want string
	}{
		{model.Page{}, "created_at DESC"},
		{model.Page{SortColumn: "price", SortDir: model.SortAsc}, "price ASC"},
		{model.Page{SortColumn: "price", SortDir: model.SortDesc}, "price DESC"},
		{model.Page{SortColumn: "email", SortDir: model.SortAsc}, "created_at DESC"},
		{model.Page{SortColumn: "price; DROP TABLE products", SortDir: model.SortAsc}, "created_at DESC"},
	} {
		if got := orderClause(tc.page, productSorts); got != tc.want {
			t.Errorf("orderClause(%+v) = %q, want %q", tc.page, got, tc.want)
		}
	}
}

func TestLikePattern(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"wid", "%wid%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\tmp`, `%c:\\tmp%`},
	} {
		if got := likePattern(tc.input); got != tc.want {
			t.Errorf("likePattern(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestListProducts_SearchAndActive(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COUNT(*) FROM products WHERE (name ILIKE $1 OR sku ILIKE $1 OR description ILIKE $1) AND active = $2`)).
		WithArgs("%wid%", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM products WHERE .+ ORDER BY name ASC LIMIT \$3`).
		WithArgs("%wid%", true, 10).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("product_1_abc", "Blue Widget", nil, "19.99", "WID-1", true, now, now, "user_1", nil))
	mock.ExpectCommit()

	products, total, err := s.ListProducts(context.Background(), model.ProductQuery{
		Page:   model.Page{Page: 1, PageSize: 10, SortColumn: "name", SortDir: model.SortAsc},
		Search: "wid",
		Active: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if total != 1 || len(products) != 1 {
		t.Fatalf("got %d products, total %d; want 1, 1", len(products), total)
	}
	p := products[0]
	if p.Name != "Blue Widget" || p.Price != "19.99" || p.Description != "" || p.CreatedBy != "user_1" {
		t.Errorf("product = %+v", p)
	}
}

func TestListUsers_PageBeyondEnd(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(23))
	mock.ExpectQuery(`SELECT .+ FROM users ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 30).
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectCommit()

	users, total, err := s.ListUsers(context.Background(), model.UserQuery{
		Page: model.Page{Page: 4, PageSize: 10, SortColumn: "created_at", SortDir: model.SortDesc},
	})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 23 {
		t.Errorf("total = %d, want 23", total)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("users = %v, want empty non-nil slice", users)
	}
}

func TestListUsers_VerifiedFilter(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COUNT(*) FROM users WHERE (name ILIKE $1 OR email ILIKE $1) AND email_verified = $2`)).
		WithArgs("%ada%", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`SELECT .+ FROM users WHERE .+ ORDER BY email ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("%ada%", false, 10, 10).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("user_1_abc", "Ada", "ada@example.com", false, nil, now, now))
	mock.ExpectCommit()

	users, total, err := s.ListUsers(context.Background(), model.UserQuery{
		Page:          model.Page{Page: 2, PageSize: 10, SortColumn: "email", SortDir: model.SortAsc},
		Search:        "ada",
		EmailVerified: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 11 || len(users) != 1 || users[0].Email != "ada@example.com" {
		t.Errorf("got %+v total %d", users, total)
	}
}

func TestListProducts_CountFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := s.ListProducts(context.Background(), model.ProductQuery{Page: model.Page{Page: 1, PageSize: 10}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateProduct_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "products_sku_key"})

	err := s.CreateProduct(context.Background(), &model.Product{ID: "product_1_abc", Name: "W", Price: "1.00", SKU: "W-1"})
	var ce *model.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *model.ConflictError", err)
	}
	if ce.Field != "sku" {
		t.Errorf("field = %q, want sku", ce.Field)
	}
}

func TestCreateUser_ReturnsTimestamps(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	now := time.Now().Truncate(time.Second)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("user_1_abc", "Ada", "ada@example.com", false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &model.User{ID: "user_1_abc", Name: "Ada", Email: "ada@example.com"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !u.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", u.CreatedAt, now)
	}
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectQuery(`UPDATE users SET`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := s.UpdateUser(context.Background(), &model.User{ID: "user_1", Name: "A", Email: "taken@example.com"})
	var ce *model.ConflictError
	if !errors.As(err, &ce) || ce.Message != "Email already exists" {
		t.Fatalf("error = %v, want email conflict", err)
	}
}

func TestDeleteProduct_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).
		WithArgs("product_missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteProduct(context.Background(), "product_missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestGetProductBySKU(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM products WHERE sku = \$1`).
		WithArgs("WID-1").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("product_1_abc", "Widget", "A widget", "5.00", "WID-1", false, now, now, nil, nil))

	p, err := s.GetProductBySKU(context.Background(), "WID-1")
	if err != nil {
		t.Fatalf("GetProductBySKU: %v", err)
	}
	if p.Description != "A widget" || p.Active {
		t.Errorf("product = %+v", p)
	}
}

func TestGetSession(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	exp := time.Now().Add(time.Hour)

	mock.ExpectQuery(`SELECT .+ FROM sessions WHERE token = \$1`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"token", "user_id", "expires_at", "created_at", "ip_address", "user_agent"}).
			AddRow("tok", "user_1", exp, time.Now(), "10.0.0.1", nil))

	sess, err := s.GetSession(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.UserID != "user_1" || sess.IPAddress != "10.0.0.1" || sess.UserAgent != "" {
		t.Errorf("session = %+v", sess)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	now := time.Now()

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.DeleteExpiredSessions(context.Background(), now)
	if err != nil || n != 3 {
		t.Errorf("DeleteExpiredSessions = %d, %v; want 3, nil", n, err)
	}
}

func TestGetEvents(t *testing.T) {
	cols := []string{"id", "topic", "record_id", "actor", "payload", "created_at"}
	for _, tc := range []struct {
		name     string
		recordID string
		limit    int
		pattern  string
		args     []driver.Value
	}{
		{"all", "", 50, `FROM events ORDER BY id DESC LIMIT \$1`, []driver.Value{50}},
		{"one record", "product_1", 0, `FROM events WHERE record_id = \$1 ORDER BY id DESC`, []driver.Value{"product_1"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := newStore(db)

			mock.ExpectQuery(tc.pattern).WithArgs(tc.args...).
				WillReturnRows(sqlmock.NewRows(cols).
					AddRow(int64(7), "backoffice.product.created", "product_1", "user_1", []byte(`{"id":"product_1"}`), time.Now()))

			events, err := s.GetEvents(context.Background(), tc.recordID, tc.limit)
			if err != nil {
				t.Fatalf("GetEvents: %v", err)
			}
			if len(events) != 1 || events[0].ID != 7 || string(events[0].Payload) != `{"id":"product_1"}` {
				t.Errorf("events = %+v", events)
			}
		})
	}
}

func TestSetConfig(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	now := time.Now()

	value := json.RawMessage(`{"entity":"products","name":"active","query":"active=true"}`)
	mock.ExpectQuery(`INSERT INTO configs`).
		WithArgs("view:products:active", []byte(value)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	c := &model.Config{Key: "view:products:active", Value: value}
	if err := s.SetConfig(context.Background(), c); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if c.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestRunInTransaction_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM products WHERE sku = \$1`).
		WithArgs("WID-1").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("product_1", "Widget", nil, "1.00", "WID-1", true, time.Now(), time.Now(), nil, nil))
	mock.ExpectRollback()

	errDup := errors.New("duplicate")
	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		if _, err := tx.GetProductBySKU(context.Background(), "WID-1"); err == nil {
			return errDup
		}
		return nil
	})
	if !errors.Is(err, errDup) {
		t.Errorf("error = %v, want errDup", err)
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).WithArgs("user_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		return tx.DeleteUser(context.Background(), "user_1")
	})
	if err != nil {
		t.Errorf("RunInTransaction: %v", err)
	}
}

func TestListConfigs_Namespace(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT key, value, created_at, updated_at FROM configs WHERE key LIKE \$1 ORDER BY key`).
		WithArgs(`view:products\_x:%`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "created_at", "updated_at"}).
			AddRow("view:products_x:a", []byte(`{"query":"page=2"}`), now, now))

	configs, err := s.ListConfigs(context.Background(), "view:products_x")
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}
	if len(configs) != 1 || string(configs[0].Value) != `{"query":"page=2"}` {
		t.Errorf("configs = %+v", configs)
	}
}

func TestListUsers_InsideTransactionSkipsSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	s := newStore(db)

	// One Begin for RunInTransaction; the listing must not open another.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .+ FROM users ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(25).
		WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectCommit()

	err := s.RunInTransaction(context.Background(), func(tx store.Store) error {
		_, _, err := tx.ListUsers(context.Background(), model.UserQuery{Page: model.Page{Page: 1, PageSize: 25}})
		return err
	})
	if err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
}
