package filter

import (
	"encoding/json"
	"strings"
	"testing"
)

// testConfig covers every filter kind.
func testConfig() *Config {
	return MustConfig("widgets",
		[]Field{
			{Key: "search", Definition: Definition{Kind: KindSearch, Label: "Search", Placeholder: "Search widgets..."}},
			{Key: "status", Definition: Definition{
				Kind:    KindSelect,
				Label:   "Status",
				Options: []Option{{"all", "All"}, {"open", "Open"}, {"closed", "Closed"}},
				Default: StringValue("all"),
			}},
			{Key: "active", Definition: Definition{Kind: KindBoolean, Label: "Active"}},
			{Key: "tags", Definition: Definition{
				Kind:    KindMultiSelect,
				Label:   "Tags",
				Options: []Option{{"a", "A"}, {"b", "B"}, {"c", "C"}},
			}},
			{Key: "createdAt", Definition: Definition{Kind: KindDateRange, Label: "Created"}},
		},
		[]Sort{
			{Key: "name", SortDefinition: SortDefinition{Label: "Name", Field: "name"}},
			{Key: "createdAt", SortDefinition: SortDefinition{Label: "Created", Field: "created_at"}},
		},
		&Pagination{DefaultPageSize: 25, PageSizes: []int{10, 25, 50}},
	)
}

func TestNewConfigRejects(t *testing.T) {
	nameSort := []Sort{{Key: "name", SortDefinition: SortDefinition{Field: "name"}}}
	for _, tc := range []struct {
		name    string
		fields  []Field
		sorts   []Sort
		page    *Pagination
		wantErr string
	}{
		{
			name:    "duplicate filter",
			fields:  []Field{{Key: "q", Definition: Definition{Kind: KindSearch}}, {Key: "q", Definition: Definition{Kind: KindSearch}}},
			sorts:   nameSort,
			wantErr: "duplicate filter key",
		},
		{
			name:    "reserved key",
			fields:  []Field{{Key: "page", Definition: Definition{Kind: KindSearch}}},
			sorts:   nameSort,
			wantErr: "reserved",
		},
		{
			name:    "unknown kind",
			fields:  []Field{{Key: "q", Definition: Definition{Kind: "slider"}}},
			sorts:   nameSort,
			wantErr: "unknown filter kind",
		},
		{
			name:    "select without options",
			fields:  []Field{{Key: "s", Definition: Definition{Kind: KindSelect}}},
			sorts:   nameSort,
			wantErr: "at least one option",
		},
		{
			name:    "default of wrong type",
			fields:  []Field{{Key: "b", Definition: Definition{Kind: KindBoolean, Default: StringValue("maybe")}}},
			sorts:   nameSort,
			wantErr: "does not fit",
		},
		{
			name:    "sort without field",
			sorts:   []Sort{{Key: "name"}},
			wantErr: "has no field",
		},
		{
			name:    "duplicate sort",
			sorts:   append(nameSort, nameSort...),
			wantErr: "duplicate sort key",
		},
		{
			name:    "default page size too large",
			sorts:   nameSort,
			page:    &Pagination{DefaultPageSize: 500},
			wantErr: "out of range",
		},
		{
			name:    "page sizes not ascending",
			sorts:   nameSort,
			page:    &Pagination{DefaultPageSize: 10, PageSizes: []int{25, 10}},
			wantErr: "ascending",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig("test", tc.fields, tc.sorts, tc.page)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := MustConfig("bare", nil, nil, nil)
	if got := cfg.DefaultPageSize(); got != 10 {
		t.Errorf("DefaultPageSize = %d, want 10", got)
	}
	if !cfg.DefaultSort().IsZero() {
		t.Error("DefaultSort should be zero when no sorts are declared")
	}

	cfg = testConfig()
	if got := cfg.DefaultPageSize(); got != 25 {
		t.Errorf("DefaultPageSize = %d, want 25", got)
	}
	if got := cfg.DefaultSort().Name(); got != "name" {
		t.Errorf("DefaultSort = %q, want name", got)
	}
	if _, ok := cfg.Filter("nope"); ok {
		t.Error("Filter(nope) should not resolve")
	}
	if got := cfg.Definition(cfg.MustFilter("status")).Default; !got.Equal(StringValue("all")) {
		t.Errorf("status default = %s, want \"all\"", got)
	}
}

func TestConfigKeysFromAnotherConfigPanic(t *testing.T) {
	a, b := testConfig(), testConfig()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a key from another config")
		}
	}()
	a.Definition(b.MustFilter("search"))
}

func TestConfigMarshalJSONKeepsOrder(t *testing.T) {
	data, err := json.Marshal(testConfig())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got struct {
		Name    string `json:"name"`
		Filters []struct {
			Key          string          `json:"key"`
			Type         string          `json:"type"`
			DefaultValue json.RawMessage `json:"defaultValue"`
		} `json:"filters"`
		Sorting []struct {
			Key   string `json:"key"`
			Field string `json:"field"`
		} `json:"sorting"`
		Pagination Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	var keys []string
	for _, f := range got.Filters {
		keys = append(keys, f.Key+":"+f.Type)
	}
	if want := "search:search,status:select,active:boolean,tags:multiselect,createdAt:daterange"; strings.Join(keys, ",") != want {
		t.Errorf("filters = %s, want %s", strings.Join(keys, ","), want)
	}
	if string(got.Filters[1].DefaultValue) != `"all"` {
		t.Errorf("status defaultValue = %s, want \"all\"", got.Filters[1].DefaultValue)
	}
	if string(got.Filters[0].DefaultValue) != "null" {
		t.Errorf("search defaultValue = %s, want null", got.Filters[0].DefaultValue)
	}
	if len(got.Sorting) != 2 || got.Sorting[1].Field != "created_at" {
		t.Errorf("sorting = %+v", got.Sorting)
	}
	if got.Pagination.DefaultPageSize != 25 || len(got.Pagination.PageSizes) != 3 {
		t.Errorf("pagination = %+v", got.Pagination)
	}
}

func TestValueJSON(t *testing.T) {
	for _, tc := range []struct {
		v    Value
		json string
	}{
		{Absent, "null"},
		{StringValue("x"), `"x"`},
		{BoolValue(true), "true"},
		{ListValue("a", "b"), `["a","b"]`},
		{RangeValue("2024-01-01", ""), `{"from":"2024-01-01"}`},
	} {
		data, err := json.Marshal(tc.v)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", tc.v, err)
		}
		if string(data) != tc.json {
			t.Errorf("Marshal(%s) = %s, want %s", tc.v, data, tc.json)
		}
		var back Value
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if !back.Equal(tc.v) {
			t.Errorf("Unmarshal(%s) = %s, want %s", data, back, tc.v)
		}
	}
}
