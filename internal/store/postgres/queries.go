package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// executor is what queries need from *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements the record operations of store.Store on db, which is
// the pool or a transaction.
type queries struct {
	db executor
}

// row is a *sql.Row or *sql.Rows.
type row interface {
	Scan(dest ...any) error
}

// collect scans every row with scan. The result is never nil.
func collect[T any](rows *sql.Rows, scan func(row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// list runs a COUNT over from+w, then the page itself.
func list[T any](ctx context.Context, db executor, columns, from string, w *where, order string, page model.Page, scan func(row) (T, error)) ([]T, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+from+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", from, err)
	}
	query := "SELECT " + columns + " FROM " + from + w.String() + " ORDER BY " + order + w.limit(page)
	rows, err := db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", from, err)
	}
	items, err := collect(rows, scan)
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", from, err)
	}
	return items, total, nil
}

// execOne runs a statement that must touch exactly one row; zero rows is
// reported as sql.ErrNoRows.
func (q queries) execOne(ctx context.Context, query string, args ...any) error {
	n, err := q.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (q queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// where accumulates AND'ed clauses and their positional arguments.
type where struct {
	clauses []string
	args    []any
}

// arg binds v and returns its placeholder.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(clause string) {
	w.clauses = append(w.clauses, clause)
}

// search adds a case-insensitive substring match of term on any of cols.
func (w *where) search(term string, cols ...string) {
	if term == "" {
		return
	}
	p := w.arg(likePattern(term))
	ors := make([]string, len(cols))
	for i, c := range cols {
		ors[i] = c + " ILIKE " + p
	}
	w.add("(" + strings.Join(ors, " OR ") + ")")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// limit binds LIMIT and OFFSET for a page.
func (w *where) limit(p model.Page) string {
	if p.PageSize <= 0 {
		return ""
	}
	s := " LIMIT " + w.arg(p.PageSize)
	if off := p.Offset(); off > 0 {
		s += " OFFSET " + w.arg(off)
	}
	return s
}

// orderClause builds an ORDER BY expression from a whitelisted column,
// newest first when the column is not allowed.
func orderClause(p model.Page, allowed map[string]bool) string {
	if !allowed[p.SortColumn] {
		return "created_at DESC"
	}
	if p.SortDir == model.SortAsc {
		return p.SortColumn + " ASC"
	}
	return p.SortColumn + " DESC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring ILIKE match, escaping wildcards.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// nullString stores "" as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// jsonb stores an empty document as NULL.
func jsonb(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return m
}
