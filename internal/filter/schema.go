package filter

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// Schema validates raw query parameters against a Config.
type Schema struct {
	cfg      *Config
	sortKeys []string
}

// DeriveSchema builds the validator for cfg. It fails with ErrNoSortKeys when
// cfg declares no sort keys.
func DeriveSchema(cfg *Config) (*Schema, error) {
	if len(cfg.sorts) == 0 {
		return nil, fmt.Errorf("%s: %w", cfg.name, ErrNoSortKeys)
	}
	keys := make([]string, len(cfg.sorts))
	for i, s := range cfg.sorts {
		keys[i] = s.Key
	}
	return &Schema{cfg: cfg, sortKeys: keys}, nil
}

// MustDeriveSchema is like DeriveSchema but panics on error.
func MustDeriveSchema(cfg *Config) *Schema {
	s, err := DeriveSchema(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Config returns the config the schema was derived from.
func (s *Schema) Config() *Config { return s.cfg }

// Parse validates q and applies defaults. Unknown parameters are ignored.
// On failure the error is a *model.ValidationError naming every bad field.
func (s *Schema) Parse(q url.Values) (Params, error) {
	var ve model.ValidationError
	p := Params{
		Page:          1,
		PageSize:      s.cfg.DefaultPageSize(),
		SortField:     s.sortKeys[0],
		SortDirection: model.SortDesc,
		Filters:       map[string]Value{},
	}

	if raw := q.Get(ParamPage); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			ve.Add(ParamPage, "Expected integer, received %q", raw)
		case n < 1:
			ve.Add(ParamPage, "Number must be greater than or equal to 1")
		default:
			p.Page = n
		}
	}

	if raw := q.Get(ParamPageSize); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			ve.Add(ParamPageSize, "Expected integer, received %q", raw)
		case n < 1:
			ve.Add(ParamPageSize, "Number must be greater than or equal to 1")
		case n > MaxPageSize:
			ve.Add(ParamPageSize, "Number must be less than or equal to %d", MaxPageSize)
		default:
			p.PageSize = n
		}
	}

	if raw := q.Get(ParamSortField); raw != "" {
		if slices.Contains(s.sortKeys, raw) {
			p.SortField = raw
		} else {
			ve.Add(ParamSortField, "Invalid enum value. Expected %s, received '%s'", quoteAll(s.sortKeys), raw)
		}
	}

	if raw := q.Get(ParamSortDirection); raw != "" {
		if d := model.SortDirection(raw); d.IsValid() {
			p.SortDirection = d
		} else {
			ve.Add(ParamSortDirection, "Invalid enum value. Expected 'asc' | 'desc', received '%s'", raw)
		}
	}

	for _, f := range s.cfg.fields {
		v, ok := parseField(&ve, f, q)
		if ok {
			p.Filters[f.Key] = v
		}
	}

	if err := ve.Err(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// parseField reads one filter from q. It reports false when the filter is
// absent, blank or invalid.
func parseField(ve *model.ValidationError, f Field, q url.Values) (Value, bool) {
	switch f.Kind {
	case KindSearch:
		raw := q.Get(f.Key)
		if raw == "" {
			return Absent, false
		}
		return StringValue(raw), true

	case KindBoolean:
		switch raw := q.Get(f.Key); raw {
		case "":
			return Absent, false
		case "true", "false":
			return BoolValue(raw == "true"), true
		default:
			ve.Add(f.Key, "Expected 'true' | 'false', received '%s'", raw)
			return Absent, false
		}

	case KindSelect:
		raw := q.Get(f.Key)
		if raw == "" || raw == AllValue {
			return Absent, false
		}
		if !hasOption(f.Options, raw) {
			ve.Add(f.Key, "Invalid enum value. Expected %s, received '%s'", quoteAll(optionValues(f.Options)), raw)
			return Absent, false
		}
		return StringValue(raw), true

	case KindMultiSelect:
		items := listItems(q[f.Key])
		if len(items) == 0 {
			return Absent, false
		}
		bad := false
		for _, it := range items {
			if !hasOption(f.Options, it) {
				ve.Add(f.Key, "Invalid enum value. Expected %s, received '%s'", quoteAll(optionValues(f.Options)), it)
				bad = true
			}
		}
		if bad {
			return Absent, false
		}
		return ListValue(items...), true

	case KindDateRange:
		from, to := q.Get(f.Key+".from"), q.Get(f.Key+".to")
		if from == "" && to == "" {
			return Absent, false
		}
		return RangeValue(from, to), true
	}
	return Absent, false
}

func hasOption(opts []Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func optionValues(opts []Option) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o.Value != AllValue {
			out = append(out, o.Value)
		}
	}
	return out
}

func quoteAll(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, " | ")
}
