package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState()

	assert.Equal(t, ModeGrid, s.ViewMode())
	assert.False(t, s.SidebarOpen())
	assert.False(t, s.CommandMenuOpen())

	f := s.Filters()
	assert.Empty(t, f.Search)
	assert.Empty(t, f.Language)
	assert.Empty(t, f.TagIDs)
}

func TestSetLanguageTogglesOff(t *testing.T) {
	s := NewState()

	s.SetLanguage("go")
	assert.Equal(t, "go", s.Filters().Language)

	s.SetLanguage("python")
	assert.Equal(t, "python", s.Filters().Language)

	// Selecting the active language clears the filter.
	s.SetLanguage("python")
	assert.Empty(t, s.Filters().Language)
}

func TestToggleTag(t *testing.T) {
	s := NewState()

	s.ToggleTag("t1")
	s.ToggleTag("t2")
	assert.Equal(t, []string{"t1", "t2"}, s.Filters().TagIDs)

	s.ToggleTag("t1")
	assert.Equal(t, []string{"t2"}, s.Filters().TagIDs)

	s.ToggleTag("t2")
	assert.Empty(t, s.Filters().TagIDs)
}

func TestClearFilters(t *testing.T) {
	s := NewState()
	s.SetSearch("fib")
	s.SetLanguage("go")
	s.ToggleTag("t1")

	s.ClearFilters()

	f := s.Filters()
	assert.Empty(t, f.Search)
	assert.Empty(t, f.Language)
	assert.Empty(t, f.TagIDs)
}

func TestClearFiltersKeepsUIState(t *testing.T) {
	s := NewState()
	s.SetViewMode(ModeList)
	s.SetSidebarOpen(true)
	s.SetCommandMenuOpen(true)
	s.SetSearch("fib")

	s.ClearFilters()

	assert.Equal(t, ModeList, s.ViewMode())
	assert.True(t, s.SidebarOpen())
	assert.True(t, s.CommandMenuOpen())
}

func TestFiltersReturnsDefensiveCopy(t *testing.T) {
	s := NewState()
	s.ToggleTag("t1")

	f := s.Filters()
	f.TagIDs[0] = "mutated"

	assert.Equal(t, []string{"t1"}, s.Filters().TagIDs)
}
