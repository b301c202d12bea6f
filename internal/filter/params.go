package filter

import (
	"encoding/json"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// Params is a sanitized query: page, page size and sort are always set, and
// Filters holds only the filters that constrain the result. Boolean filters
// are always BoolValue here.
type Params struct {
	Page          int
	PageSize      int
	SortField     string
	SortDirection model.SortDirection
	Filters       map[string]Value
}

// Get returns the value of an active filter.
func (p Params) Get(key string) (Value, bool) {
	v, ok := p.Filters[key]
	return v, ok
}

// Text returns the string value of an active filter, or "".
func (p Params) Text(key string) string {
	s, _ := p.Filters[key].AsString()
	return s
}

// Bool returns the boolean value of an active boolean filter.
func (p Params) Bool(key string) (b, ok bool) {
	return p.Filters[key].AsBool()
}

// Values encodes the params as URL query parameters. Multiselect values are
// repeated keys and date ranges use key.from and key.to.
func (p Params) Values() url.Values {
	q := url.Values{}
	q.Set(ParamPage, strconv.Itoa(p.Page))
	q.Set(ParamPageSize, strconv.Itoa(p.PageSize))
	q.Set(ParamSortField, p.SortField)
	q.Set(ParamSortDirection, string(p.SortDirection))
	for k, v := range p.Filters {
		putValue(q, k, v)
	}
	return q
}

// Key is a canonical string for p; equal params have equal keys.
func (p Params) Key() string {
	return p.Values().Encode()
}

// Equal reports whether two params describe the same query.
func (p Params) Equal(o Params) bool {
	return p.Page == o.Page &&
		p.PageSize == o.PageSize &&
		p.SortField == o.SortField &&
		p.SortDirection == o.SortDirection &&
		maps.EqualFunc(p.Filters, o.Filters, Value.Equal)
}

// MarshalJSON flattens filters next to the paging fields.
func (p Params) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Filters)+4)
	for k, v := range p.Filters {
		out[k] = v
	}
	out[ParamPage] = p.Page
	out[ParamPageSize] = p.PageSize
	out[ParamSortField] = p.SortField
	out[ParamSortDirection] = p.SortDirection
	return json.Marshal(out)
}

func putValue(q url.Values, key string, v Value) {
	switch v.kind {
	case valueString:
		q.Set(key, v.s)
	case valueBool:
		q.Set(key, strconv.FormatBool(v.b))
	case valueList:
		q.Del(key)
		for _, item := range v.list {
			q.Add(key, item)
		}
	case valueRange:
		if v.rng.From != "" {
			q.Set(key+".from", v.rng.From)
		}
		if v.rng.To != "" {
			q.Set(key+".to", v.rng.To)
		}
	}
}

// listItems gathers repeated and comma-separated values, dropping blanks.
func listItems(raw []string) []string {
	var items []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}
