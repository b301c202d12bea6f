package filter

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

type valueKind uint8

const (
	valueAbsent valueKind = iota
	valueString
	valueBool
	valueList
	valueRange
)

// Value is the current value of one filter: absent, a string, a boolean, a
// list of strings, or a date range. The zero Value is absent.
type Value struct {
	kind valueKind
	s    string
	b    bool
	list []string
	rng  DateRange
}

// DateRange is an inclusive from/to pair. Either end may be empty.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Absent is the value of a filter that carries nothing.
var Absent = Value{}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: valueString, s: s} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: valueBool, b: b} }

// ListValue wraps a list of strings. The slice is copied.
func ListValue(items ...string) Value {
	return Value{kind: valueList, list: append([]string{}, items...)}
}

// RangeValue wraps a date range.
func RangeValue(from, to string) Value {
	return Value{kind: valueRange, rng: DateRange{From: from, To: to}}
}

// IsAbsent reports whether v carries nothing.
func (v Value) IsAbsent() bool { return v.kind == valueAbsent }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == valueString }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == valueBool }

// AsList returns a copy of the list held by v.
func (v Value) AsList() ([]string, bool) {
	if v.kind != valueList {
		return nil, false
	}
	return append([]string{}, v.list...), true
}

// AsRange returns the date range held by v.
func (v Value) AsRange() (DateRange, bool) { return v.rng, v.kind == valueRange }

// Equal reports whether two values hold the same thing.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case valueString:
		return v.s == o.s
	case valueBool:
		return v.b == o.b
	case valueList:
		return slices.Equal(v.list, o.list)
	case valueRange:
		return v.rng == o.rng
	}
	return true
}

// blank reports whether v means "no filter" when building query params.
func (v Value) blank() bool {
	switch v.kind {
	case valueAbsent:
		return true
	case valueString:
		return v.s == "" || v.s == AllValue
	case valueList:
		return len(v.list) == 0
	case valueRange:
		return v.rng.From == "" && v.rng.To == ""
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case valueString:
		return fmt.Sprintf("%q", v.s)
	case valueBool:
		return fmt.Sprint(v.b)
	case valueList:
		return "[" + strings.Join(v.list, ",") + "]"
	case valueRange:
		return v.rng.From + ".." + v.rng.To
	}
	return "<absent>"
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueString:
		return json.Marshal(v.s)
	case valueBool:
		return json.Marshal(v.b)
	case valueList:
		return json.Marshal(v.list)
	case valueRange:
		return json.Marshal(v.rng)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Absent
	case string:
		*v = StringValue(t)
	case bool:
		*v = BoolValue(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return fmt.Errorf("filter value: list items must be strings, got %T", it)
			}
			items = append(items, s)
		}
		*v = ListValue(items...)
	case map[string]any:
		var r DateRange
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*v = RangeValue(r.From, r.To)
	default:
		return fmt.Errorf("filter value: unsupported JSON type %T", raw)
	}
	return nil
}

// accepts reports whether a filter of kind k can hold v.
func accepts(k Kind, v Value) bool {
	switch k {
	case KindSearch, KindSelect:
		return v.kind == valueString
	case KindBoolean:
		if v.kind == valueBool {
			return true
		}
		return v.kind == valueString && (v.s == "" || v.s == "true" || v.s == "false")
	case KindMultiSelect:
		return v.kind == valueList
	case KindDateRange:
		return v.kind == valueRange
	}
	return false
}

// emptyValue is the type-appropriate blank for a filter kind.
func emptyValue(k Kind) Value {
	switch k {
	case KindSearch, KindSelect:
		return StringValue("")
	case KindBoolean:
		return BoolValue(false)
	}
	return Absent
}

// resetValue is what a filter holds after initialization or ClearFilters:
// the configured default when present, else the type-appropriate blank.
func resetValue(d Definition) Value {
	if !d.Default.IsAbsent() {
		return d.Default
	}
	return emptyValue(d.Kind)
}
