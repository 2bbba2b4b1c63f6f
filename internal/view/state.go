// Package view holds the transient client view state: the filters that
// parameterize snippet listings plus a few UI visibility flags. Nothing in
// here is persisted, and the state has a single owner — mutations are
// synchronous with no concurrent writers, so there is no locking.
package view

import "github.com/sakif/snipvault/internal/model"

// Mode is how the snippet collection is laid out.
type Mode string

const (
	ModeGrid Mode = "grid"
	ModeList Mode = "list"
)

// State is the view-side session state. The zero value is not ready to
// use; construct with NewState.
type State struct {
	filters         model.FilterState
	viewMode        Mode
	sidebarOpen     bool
	commandMenuOpen bool
}

func NewState() *State {
	return &State{viewMode: ModeGrid}
}

// Filters returns a value copy safe to hand to the aggregation engine.
func (s *State) Filters() model.FilterState {
	f := s.filters
	f.TagIDs = append([]string(nil), s.filters.TagIDs...)
	return f
}

func (s *State) SetSearch(search string) {
	s.filters.Search = search
}

// SetLanguage toggles the language filter: selecting the language that is
// already active clears it.
func (s *State) SetLanguage(language string) {
	if s.filters.Language == language {
		s.filters.Language = ""
		return
	}
	s.filters.Language = language
}

// ToggleTag adds the tag id to the selected set, or removes it if already
// selected.
func (s *State) ToggleTag(tagID string) {
	for i, id := range s.filters.TagIDs {
		if id == tagID {
			s.filters.TagIDs = append(s.filters.TagIDs[:i], s.filters.TagIDs[i+1:]...)
			return
		}
	}
	s.filters.TagIDs = append(s.filters.TagIDs, tagID)
}

// ClearFilters resets search, language, and tag selection at once.
func (s *State) ClearFilters() {
	s.filters = model.FilterState{}
}

func (s *State) ViewMode() Mode        { return s.viewMode }
func (s *State) SetViewMode(m Mode)    { s.viewMode = m }
func (s *State) SidebarOpen() bool     { return s.sidebarOpen }
func (s *State) SetSidebarOpen(v bool) { s.sidebarOpen = v }
func (s *State) CommandMenuOpen() bool { return s.commandMenuOpen }
func (s *State) SetCommandMenuOpen(v bool) {
	s.commandMenuOpen = v
}
