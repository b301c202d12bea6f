// Package filter turns a declarative description of a record type's filters,
// sort keys and page sizes into the two things a list view needs: a
// validator for incoming query parameters, and a state engine that holds the
// current selection and produces sanitized parameters for the data layer.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the control type of a filterable attribute.
type Kind string

const (
	KindSearch      Kind = "search"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	KindDateRange   Kind = "daterange"
	KindBoolean     Kind = "boolean"
)

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindSearch, KindSelect, KindMultiSelect, KindDateRange, KindBoolean:
		return true
	}
	return false
}

// AllValue is the select sentinel meaning "no filter applied".
const AllValue = "all"

const (
	// MaxPageSize is the hard cap on pageSize regardless of configuration.
	MaxPageSize = 100

	fallbackPageSize = 10
)

// ErrNoSortKeys is returned when a config declares no sort keys, so no
// default sortField can be established.
var ErrNoSortKeys = errors.New("filter: config declares no sort keys")

// Parameter names shared by every list view. Filter keys may not reuse them.
const (
	ParamPage          = "page"
	ParamPageSize      = "pageSize"
	ParamSortField     = "sortField"
	ParamSortDirection = "sortDirection"
)

var reserved = map[string]bool{
	ParamPage: true, ParamPageSize: true, ParamSortField: true, ParamSortDirection: true,
}

// Option is one value/label pair of a select or multiselect filter.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Definition describes one filterable attribute.
type Definition struct {
	Kind        Kind     `json:"type"`
	Label       string   `json:"label,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Default     Value    `json:"defaultValue"`
}

// SortDefinition names an orderable attribute.
type SortDefinition struct {
	Label string `json:"label"`
	Field string `json:"field"`
}

// Pagination holds the page size defaults of a list view.
type Pagination struct {
	DefaultPageSize int   `json:"defaultPageSize"`
	PageSizes       []int `json:"pageSizes"`
}

// Field pairs a filter key with its definition, in declaration order.
type Field struct {
	Key string
	Definition
}

// Sort pairs a sort key with its definition, in declaration order.
type Sort struct {
	Key string
	SortDefinition
}

// Config is the immutable description of one record type's list view.
// Build it once with NewConfig and share it process-wide.
type Config struct {
	name       string
	fields     []Field
	sorts      []Sort
	pagination *Pagination

	fieldIdx map[string]int
	sortIdx  map[string]int
}

// FilterKey identifies a filter declared by a specific Config. The zero value
// is not a valid key; obtain keys from Config.Filter or Config.MustFilter.
type FilterKey struct {
	cfg *Config
	idx int
}

// Name returns the key as declared.
func (k FilterKey) Name() string { return k.cfg.fields[k.idx].Key }

// SortKey identifies a sort key declared by a specific Config.
type SortKey struct {
	cfg *Config
	idx int
}

// Name returns the key as declared.
func (k SortKey) Name() string { return k.cfg.sorts[k.idx].Key }

// IsZero reports whether k is the zero SortKey.
func (k SortKey) IsZero() bool { return k.cfg == nil }

// NewConfig validates and builds a Config. Filters and sorts keep their
// declaration order; keys must be unique and non-empty.
func NewConfig(name string, fields []Field, sorts []Sort, pagination *Pagination) (*Config, error) {
	c := &Config{
		name:     name,
		fields:   append([]Field(nil), fields...),
		sorts:    append([]Sort(nil), sorts...),
		fieldIdx: make(map[string]int, len(fields)),
		sortIdx:  make(map[string]int, len(sorts)),
	}

	for i, f := range c.fields {
		if f.Key == "" {
			return nil, fmt.Errorf("filter %s: filter %d has an empty key", name, i)
		}
		if reserved[f.Key] {
			return nil, fmt.Errorf("filter %s: filter key %q is reserved", name, f.Key)
		}
		if _, dup := c.fieldIdx[f.Key]; dup {
			return nil, fmt.Errorf("filter %s: duplicate filter key %q", name, f.Key)
		}
		if err := checkDefinition(f.Definition); err != nil {
			return nil, fmt.Errorf("filter %s: %s: %w", name, f.Key, err)
		}
		c.fieldIdx[f.Key] = i
	}

	for i, s := range c.sorts {
		if s.Key == "" {
			return nil, fmt.Errorf("filter %s: sort %d has an empty key", name, i)
		}
		if _, dup := c.sortIdx[s.Key]; dup {
			return nil, fmt.Errorf("filter %s: duplicate sort key %q", name, s.Key)
		}
		if s.Field == "" {
			return nil, fmt.Errorf("filter %s: sort %q has no field", name, s.Key)
		}
		c.sortIdx[s.Key] = i
	}

	if pagination != nil {
		p := *pagination
		p.PageSizes = append([]int(nil), pagination.PageSizes...)
		if p.DefaultPageSize < 1 || p.DefaultPageSize > MaxPageSize {
			return nil, fmt.Errorf("filter %s: default page size %d out of range [1, %d]", name, p.DefaultPageSize, MaxPageSize)
		}
		for i, n := range p.PageSizes {
			if n < 1 {
				return nil, fmt.Errorf("filter %s: page size %d must be positive", name, n)
			}
			if i > 0 && n <= p.PageSizes[i-1] {
				return nil, fmt.Errorf("filter %s: page sizes must be ascending", name)
			}
		}
		c.pagination = &p
	}

	return c, nil
}

// MustConfig is like NewConfig but panics on error. It is meant for
// package-level declarations.
func MustConfig(name string, fields []Field, sorts []Sort, pagination *Pagination) *Config {
	c, err := NewConfig(name, fields, sorts, pagination)
	if err != nil {
		panic(err)
	}
	return c
}

func checkDefinition(d Definition) error {
	if !d.Kind.IsValid() {
		return fmt.Errorf("unknown filter kind %q", d.Kind)
	}
	if d.Kind == KindSelect || d.Kind == KindMultiSelect {
		if len(d.Options) == 0 {
			return errors.New("select filters need at least one option")
		}
		seen := make(map[string]bool, len(d.Options))
		for _, o := range d.Options {
			if seen[o.Value] {
				return fmt.Errorf("duplicate option value %q", o.Value)
			}
			seen[o.Value] = true
		}
	}
	if !d.Default.IsAbsent() && !accepts(d.Kind, d.Default) {
		return fmt.Errorf("default value %s does not fit a %s filter", d.Default, d.Kind)
	}
	return nil
}

// Name returns the record type name the config was built for.
func (c *Config) Name() string { return c.name }

// Filter resolves a declared filter key.
func (c *Config) Filter(name string) (FilterKey, bool) {
	i, ok := c.fieldIdx[name]
	if !ok {
		return FilterKey{}, false
	}
	return FilterKey{cfg: c, idx: i}, true
}

// MustFilter resolves a declared filter key or panics.
func (c *Config) MustFilter(name string) FilterKey {
	k, ok := c.Filter(name)
	if !ok {
		panic(fmt.Sprintf("filter %s: unknown filter key %q", c.name, name))
	}
	return k
}

// Sort resolves a declared sort key.
func (c *Config) Sort(name string) (SortKey, bool) {
	i, ok := c.sortIdx[name]
	if !ok {
		return SortKey{}, false
	}
	return SortKey{cfg: c, idx: i}, true
}

// MustSort resolves a declared sort key or panics.
func (c *Config) MustSort(name string) SortKey {
	k, ok := c.Sort(name)
	if !ok {
		panic(fmt.Sprintf("filter %s: unknown sort key %q", c.name, name))
	}
	return k
}

// Filters returns every filter key in declaration order.
func (c *Config) Filters() []FilterKey {
	keys := make([]FilterKey, len(c.fields))
	for i := range c.fields {
		keys[i] = FilterKey{cfg: c, idx: i}
	}
	return keys
}

// Sorts returns every sort key in declaration order.
func (c *Config) Sorts() []SortKey {
	keys := make([]SortKey, len(c.sorts))
	for i := range c.sorts {
		keys[i] = SortKey{cfg: c, idx: i}
	}
	return keys
}

// Definition returns the definition of a filter key.
func (c *Config) Definition(k FilterKey) Definition {
	c.own(k.cfg)
	return c.fields[k.idx].Definition
}

// SortDefinition returns the definition of a sort key.
func (c *Config) SortDefinition(k SortKey) SortDefinition {
	c.own(k.cfg)
	return c.sorts[k.idx].SortDefinition
}

// DefaultPageSize returns the configured default page size, or 10.
func (c *Config) DefaultPageSize() int {
	if c.pagination != nil && c.pagination.DefaultPageSize > 0 {
		return c.pagination.DefaultPageSize
	}
	return fallbackPageSize
}

// PageSizes returns the page sizes offered to the user.
func (c *Config) PageSizes() []int {
	if c.pagination == nil || len(c.pagination.PageSizes) == 0 {
		return []int{c.DefaultPageSize()}
	}
	return append([]int(nil), c.pagination.PageSizes...)
}

// DefaultSort returns the first declared sort key, or the zero SortKey when
// none is declared.
func (c *Config) DefaultSort() SortKey {
	if len(c.sorts) == 0 {
		return SortKey{}
	}
	return SortKey{cfg: c, idx: 0}
}

// own panics when a key was resolved against a different Config.
func (c *Config) own(other *Config) {
	if other != c {
		panic(fmt.Sprintf("filter %s: key belongs to another config", c.name))
	}
}

type jsonField struct {
	Key string `json:"key"`
	Definition
}

type jsonSort struct {
	Key string `json:"key"`
	SortDefinition
}

// MarshalJSON renders the config for clients that build their controls from
// it. Filters and sorts are arrays so declaration order survives.
func (c *Config) MarshalJSON() ([]byte, error) {
	out := struct {
		Name       string      `json:"name"`
		Filters    []jsonField `json:"filters"`
		Sorting    []jsonSort  `json:"sorting"`
		Pagination Pagination  `json:"pagination"`
	}{
		Name:       c.name,
		Filters:    make([]jsonField, len(c.fields)),
		Sorting:    make([]jsonSort, len(c.sorts)),
		Pagination: Pagination{DefaultPageSize: c.DefaultPageSize(), PageSizes: c.PageSizes()},
	}
	for i, f := range c.fields {
		out.Filters[i] = jsonField{Key: f.Key, Definition: f.Definition}
	}
	for i, s := range c.sorts {
		out.Sorting[i] = jsonSort{Key: s.Key, SortDefinition: s.SortDefinition}
	}
	return json.Marshal(out)
}
