package memory

import (
	"database/sql"
	"maps"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// data is the unlocked state shared by Store and tx.
type data struct {
	now func() time.Time

	users     map[string]model.User
	products  map[string]model.Product
	sessions  map[string]model.Session
	configs   map[string]model.Config
	events    []model.Event
	nextEvent int64
}

func newData(now func() time.Time) *data {
	return &data{
		now:      now,
		users:    make(map[string]model.User),
		products: make(map[string]model.Product),
		sessions: make(map[string]model.Session),
		configs:  make(map[string]model.Config),
	}
}

func (d *data) clone() *data {
	return &data{
		now:       d.now,
		users:     maps.Clone(d.users),
		products:  maps.Clone(d.products),
		sessions:  maps.Clone(d.sessions),
		configs:   maps.Clone(d.configs),
		events:    append([]model.Event(nil), d.events...),
		nextEvent: d.nextEvent,
	}
}

func (d *data) createUser(u *model.User) error {
	if err := d.checkEmail(u.ID, u.Email); err != nil {
		return err
	}
	now := d.now()
	u.CreatedAt, u.UpdatedAt = now, now
	d.users[u.ID] = *u
	return nil
}

func (d *data) getUser(id string) (*model.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (d *data) getUserByEmail(email string) (*model.User, error) {
	for _, u := range d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (d *data) listUsers(q model.UserQuery) ([]*model.User, int) {
	var matched []model.User
	for _, u := range d.users {
		if q.Search != "" && !containsFold(q.Search, u.Name, u.Email) {
			continue
		}
		if q.EmailVerified != nil && u.EmailVerified != *q.EmailVerified {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	sortBy(matched, q.Page, func(u model.User, col string) any {
		switch col {
		case "name":
			return u.Name
		case "email":
			return u.Email
		case "updated_at":
			return u.UpdatedAt
		}
		return u.CreatedAt
	})

	out := []*model.User{}
	for _, u := range window(matched, q.Page) {
		out = append(out, &u)
	}
	return out, len(matched)
}

func (d *data) updateUser(u *model.User) error {
	old, ok := d.users[u.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if err := d.checkEmail(u.ID, u.Email); err != nil {
		return err
	}
	u.CreatedAt = old.CreatedAt
	u.UpdatedAt = d.now()
	d.users[u.ID] = *u
	return nil
}

func (d *data) deleteUser(id string) error {
	if _, ok := d.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(d.users, id)
	for tok, s := range d.sessions {
		if s.UserID == id {
			delete(d.sessions, tok)
		}
	}
	return nil
}

func (d *data) checkEmail(id, email string) error {
	for _, u := range d.users {
		if u.Email == email && u.ID != id {
			return &model.ConflictError{Field: "email", Message: "Email already exists"}
		}
	}
	return nil
}

func (d *data) createProduct(p *model.Product) error {
	if err := d.checkSKU(p.ID, p.SKU); err != nil {
		return err
	}
	now := d.now()
	p.CreatedAt, p.UpdatedAt = now, now
	d.products[p.ID] = *p
	return nil
}

func (d *data) getProduct(id string) (*model.Product, error) {
	p, ok := d.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (d *data) getProductBySKU(sku string) (*model.Product, error) {
	for _, p := range d.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (d *data) listProducts(q model.ProductQuery) ([]*model.Product, int) {
	var matched []model.Product
	for _, p := range d.products {
		if q.Search != "" && !containsFold(q.Search, p.Name, p.SKU, p.Description) {
			continue
		}
		if q.Active != nil && p.Active != *q.Active {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	sortBy(matched, q.Page, func(p model.Product, col string) any {
		switch col {
		case "name":
			return p.Name
		case "sku":
			return p.SKU
		case "price":
			f, _ := strconv.ParseFloat(p.Price, 64)
			return f
		case "updated_at":
			return p.UpdatedAt
		}
		return p.CreatedAt
	})

	out := []*model.Product{}
	for _, p := range window(matched, q.Page) {
		out = append(out, &p)
	}
	return out, len(matched)
}

func (d *data) updateProduct(p *model.Product) error {
	old, ok := d.products[p.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if err := d.checkSKU(p.ID, p.SKU); err != nil {
		return err
	}
	p.CreatedAt = old.CreatedAt
	p.CreatedBy = old.CreatedBy
	p.UpdatedAt = d.now()
	d.products[p.ID] = *p
	return nil
}

func (d *data) deleteProduct(id string) error {
	if _, ok := d.products[id]; !ok {
		return sql.ErrNoRows
	}
	delete(d.products, id)
	return nil
}

func (d *data) checkSKU(id, sku string) error {
	for _, p := range d.products {
		if p.SKU == sku && p.ID != id {
			return &model.ConflictError{Field: "sku", Message: "SKU already exists"}
		}
	}
	return nil
}

func (d *data) createSession(s *model.Session) error {
	if _, ok := d.users[s.UserID]; !ok {
		return sql.ErrNoRows
	}
	s.CreatedAt = d.now()
	d.sessions[s.Token] = *s
	return nil
}

func (d *data) getSession(token string) (*model.Session, error) {
	s, ok := d.sessions[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (d *data) deleteSession(token string) error {
	if _, ok := d.sessions[token]; !ok {
		return sql.ErrNoRows
	}
	delete(d.sessions, token)
	return nil
}

func (d *data) deleteExpiredSessions(now time.Time) int {
	n := 0
	for tok, s := range d.sessions {
		if s.Expired(now) {
			delete(d.sessions, tok)
			n++
		}
	}
	return n
}

func (d *data) recordEvent(e *model.Event) {
	d.nextEvent++
	e.ID = d.nextEvent
	e.CreatedAt = d.now()
	d.events = append(d.events, *e)
}

func (d *data) getEvents(recordID string, limit int) []*model.Event {
	var out []*model.Event
	for i := len(d.events) - 1; i >= 0; i-- {
		e := d.events[i]
		if recordID != "" && e.RecordID != recordID {
			continue
		}
		out = append(out, &e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (d *data) setConfig(c *model.Config) {
	now := d.now()
	if old, ok := d.configs[c.Key]; ok {
		c.CreatedAt = old.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	d.configs[c.Key] = *c
}

func (d *data) getConfig(key string) (*model.Config, error) {
	c, ok := d.configs[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (d *data) listConfigs(namespace string) []*model.Config {
	var out []*model.Config
	for k, c := range d.configs {
		if strings.HasPrefix(k, namespace+":") {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (d *data) deleteConfig(key string) error {
	if _, ok := d.configs[key]; !ok {
		return sql.ErrNoRows
	}
	delete(d.configs, key)
	return nil
}

// containsFold reports whether any field contains needle, ignoring case.
func containsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(needle)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// sortBy orders rows by the page's sort column. Unknown columns sort by
// created_at descending, as the SQL store does.
func sortBy[T any](rows []T, p model.Page, key func(T, string) any) {
	col, desc := p.SortColumn, p.SortDir != model.SortAsc
	switch col {
	case "name", "email", "sku", "price", "created_at", "updated_at":
	default:
		col, desc = "created_at", true
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(key(rows[i], col), key(rows[j], col))
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b any) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

// window returns the rows of one page; pages past the end are empty.
func window[T any](rows []T, p model.Page) []T {
	if p.PageSize <= 0 {
		return rows
	}
	off := p.Offset()
	if off >= len(rows) {
		return nil
	}
	end := min(off+p.PageSize, len(rows))
	return rows[off:end]
}
