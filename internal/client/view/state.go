// Package view holds the client's application state and the pure logic that
// turns it into something to render. Nothing here performs I/O.
package view

import "lorewiki/internal/model"

// Theme is the client color scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme maps anything other than "light" to the dark default.
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// State is the client's view of the collection. It is owned by a single
// render loop and only changes through its methods.
type State struct {
	entries    []model.Entry
	selected   string
	query      string
	typeFilter string
	theme      Theme
}

// NewState returns an empty state using theme.
func NewState(theme Theme) *State {
	return &State{entries: []model.Entry{}, theme: theme}
}

// Replace swaps in a freshly fetched collection. The selection is kept only
// if the entry still exists.
func (s *State) Replace(entries []model.Entry) {
	if entries == nil {
		entries = []model.Entry{}
	}
	s.entries = entries
	if s.selected != "" && s.find(s.selected) < 0 {
		s.selected = ""
	}
}

// Entries returns the whole collection.
func (s *State) Entries() []model.Entry { return s.entries }

// Visible returns the entries that pass the current search and type filter.
func (s *State) Visible() []model.Entry {
	return Filter(s.entries, s.query, s.typeFilter)
}

// TypeOptions returns the types available to the type filter.
func (s *State) TypeOptions() []string { return TypeOptions(s.entries) }

// Select marks id as the active entry. It reports false if no such entry
// exists.
func (s *State) Select(id string) bool {
	if s.find(id) < 0 {
		return false
	}
	s.selected = id
	return true
}

// ClearSelection deselects the active entry.
func (s *State) ClearSelection() { s.selected = "" }

// SelectedID returns the active entry id, visible or not.
func (s *State) SelectedID() string { return s.selected }

// Selected returns the active entry only when it is visible under the current
// filters; a filtered-out selection clears the detail pane.
func (s *State) Selected() (model.Entry, bool) {
	if s.selected == "" {
		return model.Entry{}, false
	}
	for _, e := range s.Visible() {
		if e.ID == s.selected {
			return e, true
		}
	}
	return model.Entry{}, false
}

func (s *State) SetQuery(q string) { s.query = q }

func (s *State) Query() string { return s.query }

func (s *State) SetTypeFilter(t string) { s.typeFilter = t }

func (s *State) TypeFilter() string { return s.typeFilter }

// CycleTypeFilter steps through "" (all) and each type option in order.
func (s *State) CycleTypeFilter() string {
	opts := append([]string{""}, s.TypeOptions()...)
	next := 0
	for i, o := range opts {
		if o == s.typeFilter {
			next = (i + 1) % len(opts)
			break
		}
	}
	s.typeFilter = opts[next]
	return s.typeFilter
}

func (s *State) Theme() Theme { return s.theme }

// ToggleTheme flips the theme and returns the new value.
func (s *State) ToggleTheme() Theme {
	s.theme = s.theme.Toggle()
	return s.theme
}

func (s *State) find(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}
