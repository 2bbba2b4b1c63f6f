// Package model defines the data structures shared across the application.
package model

import "time"

// SnippetView selects which top-level subset of snippets a listing shows.
type SnippetView string

const (
	ViewAll       SnippetView = "all"
	ViewFavorites SnippetView = "favorites"
	ViewTrash     SnippetView = "trash"
)

// Valid reports whether v is one of the three known views.
func (v SnippetView) Valid() bool {
	switch v {
	case ViewAll, ViewFavorites, ViewTrash:
		return true
	}
	return false
}

// Snippet is a stored code fragment. A snippet with a non-nil DeletedAt is
// in the trash; it stays restorable until permanently deleted.
type Snippet struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Description *string    `json:"description"`
	Language    string     `json:"language"`
	IsFavorite  bool       `json:"isFavorite"`
	DeletedAt   *time.Time `json:"deletedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	UserID      string     `json:"-"`
}

// SnippetWithTags is the denormalized view model handed to the UI: a snippet
// plus its current tag memberships resolved at read time. Tags is always
// non-nil; a snippet without memberships carries an empty slice.
type SnippetWithTags struct {
	Snippet
	Tags []Tag `json:"tags"`
}

// FilterState parameterizes a snippet listing. The zero value means "no
// filters". It is a pure value type owned by the client view state and is
// never persisted.
type FilterState struct {
	Search   string   `json:"search"`
	Language string   `json:"language"`
	TagIDs   []string `json:"tagIds"`
}

// SnippetPatch carries a partial update. Nil fields are left untouched by
// the store.
type SnippetPatch struct {
	Title       *string
	Content     *string
	Description *string
	Language    *string
}

// Empty reports whether the patch touches no scalar field.
func (p SnippetPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Description == nil && p.Language == nil
}
