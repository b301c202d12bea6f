// Package tui is an interactive terminal browser for the dashboard's list
// views. It drives a filter.State from the keyboard and shows one page of
// results at a time.
package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/backoffice/internal/filter"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("74"))
	locationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	tableStyle    = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// chromeHeight is the number of lines around the table: title, filters,
// table border, status, location and help.
const chromeHeight = 8

// Page is one page of rows for the browser.
type Page struct {
	Columns    []string
	Rows       [][]string
	Pagination model.Pagination
}

// Loader fetches the page described by q.
type Loader func(ctx context.Context, q url.Values) (Page, error)

type pageMsg struct {
	page Page
	err  error
}

// Browser is a bubbletea model over one list view.
type Browser struct {
	ctx     context.Context
	title   string
	state   *filter.State
	fetcher *filter.Fetcher[Page]

	table  table.Model
	search textinput.Model
	help   help.Model
	keys   keyMap

	searchKey filter.FilterKey
	hasSearch bool
	selects   []filter.FilterKey
	focus     int
	searching bool

	location string
	page     Page
	loading  bool
	err      error

	width  int
	height int
}

// NewBrowser returns a browser that renders state and loads pages with load.
// The browser owns state from now on.
func NewBrowser(ctx context.Context, title string, state *filter.State, load Loader) *Browser {
	b := &Browser{
		ctx:    ctx,
		title:  title,
		state:  state,
		table:  table.New(table.WithFocused(true)),
		search: textinput.New(),
		help:   help.New(),
		keys:   defaultKeyMap(),
		width:  100,
		height: 30,
	}
	b.fetcher = filter.NewFetcher(func(ctx context.Context, p filter.Params) (Page, error) {
		return load(ctx, p.Values())
	})

	cfg := state.Config()
	for _, k := range cfg.Filters() {
		switch cfg.Definition(k).Kind {
		case filter.KindSearch:
			if !b.hasSearch {
				b.searchKey, b.hasSearch = k, true
			}
		case filter.KindSelect, filter.KindBoolean:
			b.selects = append(b.selects, k)
		}
	}
	b.search.Prompt = "/ "
	if b.hasSearch {
		b.search.Placeholder = cfg.Definition(b.searchKey).Placeholder
		s, _ := state.Value(b.searchKey).AsString()
		b.search.SetValue(s)
	}

	b.location = state.Encode().Encode()
	state.SetMirror(filter.MirrorFunc(func(q url.Values) {
		b.location = q.Encode()
	}))
	return b
}

// Location returns the encoded query of the current state, without the
// parameters still at their defaults.
func (b *Browser) Location() string { return b.location }

// Run shows the browser on the terminal until the user quits or ctx ends.
func Run(b *Browser) error {
	p := tea.NewProgram(b, tea.WithAltScreen(), tea.WithContext(b.ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running browser: %w", err)
	}
	return nil
}

func (b *Browser) Init() tea.Cmd {
	return b.fetch()
}

func (b *Browser) fetch() tea.Cmd {
	p := b.state.QueryParams()
	b.loading = true
	return func() tea.Msg {
		page, err := b.fetcher.Fetch(b.ctx, p)
		return pageMsg{page: page, err: err}
	}
}

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.help.Width = msg.Width
		b.layout()
		return b, nil

	case pageMsg:
		if errors.Is(msg.err, filter.ErrStale) {
			return b, nil
		}
		b.loading = false
		b.err = msg.err
		if msg.err == nil {
			b.page = msg.page
			b.layout()
		}
		return b, nil

	case tea.KeyMsg:
		if b.searching {
			return b.updateSearch(msg)
		}
		return b.updateKeys(msg)
	}
	return b, nil
}

func (b *Browser) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, b.keys.Apply):
		b.searching = false
		b.search.Blur()
		b.table.Focus()
		b.state.UpdateFilter(b.searchKey, filter.StringValue(strings.TrimSpace(b.search.Value())))
		return b, b.fetch()
	case key.Matches(msg, b.keys.CancelInput):
		b.searching = false
		b.search.Blur()
		b.table.Focus()
		s, _ := b.state.Value(b.searchKey).AsString()
		b.search.SetValue(s)
		return b, nil
	}
	var cmd tea.Cmd
	b.search, cmd = b.search.Update(msg)
	return b, cmd
}

func (b *Browser) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := b.state.View()
	cfg := b.state.Config()

	switch {
	case key.Matches(msg, b.keys.Quit):
		return b, tea.Quit

	case key.Matches(msg, b.keys.Search):
		if !b.hasSearch {
			return b, nil
		}
		b.searching = true
		b.table.Blur()
		return b, b.search.Focus()

	case key.Matches(msg, b.keys.NextValue):
		if len(b.selects) == 0 {
			return b, nil
		}
		k := b.selects[b.focus]
		b.state.UpdateFilter(k, nextValue(cfg.Definition(k), b.state.Value(k)))
		return b, b.fetch()

	case key.Matches(msg, b.keys.NextFilter):
		if len(b.selects) > 0 {
			b.focus = (b.focus + 1) % len(b.selects)
		}
		return b, nil

	case key.Matches(msg, b.keys.Clear):
		b.state.ClearFilters()
		b.search.SetValue("")
		return b, b.fetch()

	case key.Matches(msg, b.keys.Sort):
		sorts := cfg.Sorts()
		if len(sorts) == 0 {
			return b, nil
		}
		next := 0
		for i, k := range sorts {
			if k.Name() == snap.SortField {
				next = (i + 1) % len(sorts)
			}
		}
		b.state.SetSorting(sorts[next], snap.SortDirection)
		return b, b.fetch()

	case key.Matches(msg, b.keys.Reverse):
		k, _ := cfg.Sort(snap.SortField)
		dir := model.SortAsc
		if snap.SortDirection == model.SortAsc {
			dir = model.SortDesc
		}
		b.state.SetSorting(k, dir)
		return b, b.fetch()

	case key.Matches(msg, b.keys.NextPage):
		if snap.Page >= b.page.Pagination.TotalPages {
			return b, nil
		}
		b.state.SetPage(snap.Page + 1)
		return b, b.fetch()

	case key.Matches(msg, b.keys.PrevPage):
		if snap.Page <= 1 {
			return b, nil
		}
		b.state.SetPage(snap.Page - 1)
		return b, b.fetch()

	case key.Matches(msg, b.keys.PageSize):
		if len(snap.PageSizes) == 0 {
			return b, nil
		}
		next := snap.PageSizes[0]
		for i, n := range snap.PageSizes {
			if n == snap.PageSize {
				next = snap.PageSizes[(i+1)%len(snap.PageSizes)]
			}
		}
		b.state.SetPageSize(next)
		return b, b.fetch()

	case key.Matches(msg, b.keys.Refresh):
		return b, b.fetch()
	}

	var cmd tea.Cmd
	b.table, cmd = b.table.Update(msg)
	return b, cmd
}

// nextValue steps a select through its options, or a boolean through
// unset, true and false.
func nextValue(def filter.Definition, cur filter.Value) filter.Value {
	if def.Kind == filter.KindBoolean {
		s, _ := cur.AsString()
		if v, ok := cur.AsBool(); ok {
			s = strconv.FormatBool(v)
		}
		switch s {
		case "":
			return filter.StringValue("true")
		case "true":
			return filter.StringValue("false")
		}
		return filter.StringValue("")
	}
	if len(def.Options) == 0 {
		return cur
	}
	s, _ := cur.AsString()
	idx := -1
	for i, o := range def.Options {
		if o.Value == s {
			idx = i
		}
	}
	return filter.StringValue(def.Options[(idx+1)%len(def.Options)].Value)
}

// valueLabel is the display text of a filter's current value.
func valueLabel(fv filter.FilterView) string {
	s, ok := fv.Value.AsString()
	if !ok {
		if v, isBool := fv.Value.AsBool(); isBool {
			s = strconv.FormatBool(v)
		}
	}
	for _, o := range fv.Options {
		if o.Value == s {
			return o.Label
		}
	}
	if s == "" {
		return "any"
	}
	return s
}

func (b *Browser) layout() {
	cols := make([]table.Column, len(b.page.Columns))
	if n := len(cols); n > 0 {
		w := max((b.width-2)/n-2, 4)
		for i, title := range b.page.Columns {
			cols[i] = table.Column{Title: title, Width: w}
		}
	}
	rows := make([]table.Row, len(b.page.Rows))
	for i, r := range b.page.Rows {
		rows[i] = table.Row(r)
	}

	// Rows wider than the columns would be rendered out of range.
	b.table.SetRows(nil)
	b.table.SetColumns(cols)
	b.table.SetRows(rows)
	b.table.SetWidth(b.width - 2)
	b.table.SetHeight(max(b.height-chromeHeight, 3))
}

func (b *Browser) View() string {
	snap := b.state.View()

	var filters []string
	if b.hasSearch {
		filters = append(filters, b.search.View())
	}
	for i, k := range b.selects {
		fv := snap.Filters[indexOf(snap.Filters, k.Name())]
		label := labelStyle.Render(fv.Label+":") + " " + valueLabel(fv)
		if i == b.focus {
			label = focusedStyle.Render(fv.Label+":") + " " + valueLabel(fv)
		}
		filters = append(filters, label)
	}
	sortLabel := snap.SortField
	if k, ok := b.state.Config().Sort(snap.SortField); ok {
		sortLabel = b.state.Config().SortDefinition(k).Label
	}
	arrow := "↓"
	if snap.SortDirection == model.SortAsc {
		arrow = "↑"
	}
	filters = append(filters, labelStyle.Render("Sort:")+" "+sortLabel+" "+arrow)

	pg := b.page.Pagination
	status := fmt.Sprintf("Page %d of %d · %d total · %d per page", snap.Page, max(pg.TotalPages, 1), pg.Total, snap.PageSize)
	switch {
	case b.loading:
		status += " · loading..."
	case b.err != nil:
		status = errorStyle.Render("Error: " + b.err.Error())
	case len(b.page.Rows) == 0:
		status += " · no results"
	}

	location := "?" + b.location
	if b.location == "" {
		location = "(defaults)"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(b.title),
		strings.Join(filters, "   "),
		tableStyle.Render(b.table.View()),
		status,
		locationStyle.Render(location),
		b.help.View(b.keys),
	)
}

func indexOf(views []filter.FilterView, key string) int {
	for i, v := range views {
		if v.Key == key {
			return i
		}
	}
	return 0
}
