package filter

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// Mirror receives the encoded state after every committed change, so a
// location bar, saved view or terminal title can follow along.
type Mirror interface {
	Mirror(q url.Values)
}

// MirrorFunc adapts a function to Mirror.
type MirrorFunc func(q url.Values)

func (f MirrorFunc) Mirror(q url.Values) { f(q) }

// State holds the current filter values, page, page size and sort of one
// list view. Every mutation goes through commit, which notifies the Mirror
// once. A State is not safe for concurrent use.
type State struct {
	cfg      *Config
	values   []Value
	page     int
	pageSize int
	sort     SortKey
	dir      model.SortDirection
	mirror   Mirror
}

// NewState returns a state holding every filter's default, page 1, the
// config's default page size and its first sort key, descending.
func NewState(cfg *Config) *State {
	s := &State{
		cfg:      cfg,
		values:   make([]Value, len(cfg.fields)),
		page:     1,
		pageSize: cfg.DefaultPageSize(),
		sort:     cfg.DefaultSort(),
		dir:      model.SortDesc,
	}
	for i, f := range cfg.fields {
		s.values[i] = resetValue(f.Definition)
	}
	return s
}

// Config returns the config the state was built from.
func (s *State) Config() *Config { return s.cfg }

// SetMirror installs m. It is not called until the next mutation.
func (s *State) SetMirror(m Mirror) { s.mirror = m }

// Value returns the current raw value of a filter.
func (s *State) Value(k FilterKey) Value {
	s.cfg.own(k.cfg)
	return s.values[k.idx]
}

// UpdateFilter sets one filter and returns to page 1. Passing Absent resets
// the filter to its type's blank value.
func (s *State) UpdateFilter(k FilterKey, v Value) {
	s.cfg.own(k.cfg)
	s.set(k.idx, v)
	s.page = 1
	s.commit()
}

// UpdateFilters sets several filters at once and returns to page 1.
func (s *State) UpdateFilters(vals map[FilterKey]Value) {
	for k, v := range vals {
		s.cfg.own(k.cfg)
		s.set(k.idx, v)
	}
	s.page = 1
	s.commit()
}

// ClearFilters resets every filter, the page and the page size. Only the
// sort survives.
func (s *State) ClearFilters() {
	for i, f := range s.cfg.fields {
		s.values[i] = resetValue(f.Definition)
	}
	s.page = 1
	s.pageSize = s.cfg.DefaultPageSize()
	s.commit()
}

// SetPage sets the current page as given.
func (s *State) SetPage(n int) {
	s.page = n
	s.commit()
}

// SetPageSize sets the page size and returns to page 1.
func (s *State) SetPageSize(n int) {
	s.pageSize = n
	s.page = 1
	s.commit()
}

// SetSorting sets the sort key and direction together and returns to page
// 1. A zero key selects the config's default sort.
func (s *State) SetSorting(k SortKey, dir model.SortDirection) {
	if !k.IsZero() {
		s.cfg.own(k.cfg)
	}
	s.sort = k
	s.dir = dir
	s.page = 1
	s.commit()
}

func (s *State) set(idx int, v Value) {
	f := s.cfg.fields[idx]
	if v.IsAbsent() {
		s.values[idx] = emptyValue(f.Kind)
		return
	}
	if !accepts(f.Kind, v) {
		panic(fmt.Sprintf("filter %s: value %s does not fit %s filter %q", s.cfg.name, v, f.Kind, f.Key))
	}
	s.values[idx] = v
}

func (s *State) commit() {
	if s.mirror != nil {
		s.mirror.Mirror(s.Encode())
	}
}

// QueryParams returns the sanitized params for the data layer. Filters that
// are absent, empty or "all" are left out; string values of boolean filters
// become booleans. A page size above MaxPageSize is passed on for the
// server's schema to reject.
func (s *State) QueryParams() Params {
	p := Params{
		Page:          s.page,
		PageSize:      s.pageSize,
		SortDirection: s.dir,
		Filters:       map[string]Value{},
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = s.cfg.DefaultPageSize()
	}
	sort := s.sort
	if sort.IsZero() {
		sort = s.cfg.DefaultSort()
	}
	if !sort.IsZero() {
		p.SortField = sort.Name()
	}
	if !p.SortDirection.IsValid() {
		p.SortDirection = model.SortDesc
	}

	for i, f := range s.cfg.fields {
		v := s.values[i]
		if v.blank() {
			continue
		}
		if f.Kind == KindBoolean && v.kind == valueString {
			v = BoolValue(v.s == "true")
		}
		p.Filters[f.Key] = v
	}
	return p
}

// HasActiveFilters reports whether any filter differs from its reset value.
func (s *State) HasActiveFilters() bool {
	for i, f := range s.cfg.fields {
		if !s.values[i].Equal(resetValue(f.Definition)) {
			return true
		}
	}
	return false
}

// FilterView is one filter as presented by Snapshot.
type FilterView struct {
	Key string
	Definition
	Value  Value
	Active bool
}

// Snapshot is a read-only copy of the state for rendering.
type Snapshot struct {
	Filters          []FilterView
	Page             int
	PageSize         int
	PageSizes        []int
	SortField        string
	SortDirection    model.SortDirection
	HasActiveFilters bool
}

// View returns a snapshot of the current state. Page, page size and sort
// are the sanitized values QueryParams would send.
func (s *State) View() Snapshot {
	p := s.QueryParams()
	snap := Snapshot{
		Filters:          make([]FilterView, len(s.cfg.fields)),
		Page:             p.Page,
		PageSize:         p.PageSize,
		PageSizes:        s.cfg.PageSizes(),
		SortField:        p.SortField,
		SortDirection:    p.SortDirection,
		HasActiveFilters: s.HasActiveFilters(),
	}
	for i, f := range s.cfg.fields {
		_, active := p.Filters[f.Key]
		snap.Filters[i] = FilterView{Key: f.Key, Definition: f.Definition, Value: s.values[i], Active: active}
	}
	return snap
}

// Encode renders the state as URL query parameters, leaving out anything
// still at its default so shared links stay short.
func (s *State) Encode() url.Values {
	q := url.Values{}
	for i, f := range s.cfg.fields {
		v := s.values[i]
		if v.Equal(resetValue(f.Definition)) {
			continue
		}
		putValue(q, f.Key, v)
	}

	p := s.QueryParams()
	if p.Page != 1 {
		q.Set(ParamPage, strconv.Itoa(p.Page))
	}
	if p.PageSize != s.cfg.DefaultPageSize() {
		q.Set(ParamPageSize, strconv.Itoa(p.PageSize))
	}
	if def := s.cfg.DefaultSort(); !def.IsZero() && p.SortField != def.Name() {
		q.Set(ParamSortField, p.SortField)
	}
	if p.SortDirection != model.SortDesc {
		q.Set(ParamSortDirection, string(p.SortDirection))
	}
	return q
}

// Decode rebuilds a state from query parameters produced by Encode or typed
// by a user. Invalid parameters fail with a *model.ValidationError.
func Decode(cfg *Config, q url.Values) (*State, error) {
	schema, err := DeriveSchema(cfg)
	if err != nil {
		return nil, err
	}
	p, err := schema.Parse(q)
	if err != nil {
		return nil, err
	}

	s := NewState(cfg)
	for key, v := range p.Filters {
		s.set(cfg.fieldIdx[key], v)
	}
	s.page = p.Page
	s.pageSize = p.PageSize
	s.sort = cfg.MustSort(p.SortField)
	s.dir = p.SortDirection
	return s, nil
}
