// Package repository declares the storage interfaces the service layer
// depends on, plus the owner scope carried in the request context.
//
// Row-level scoping lives here, not in the services: an adapter must apply
// the context's owner (when present) to every statement it runs, the same
// way a hosted store's row-security policy would. Services therefore never
// pass an explicit owner filter on reads; only create-style operations take
// an owner id, which the calling layer resolves from the authentication
// collaborator.
package repository

import (
	"context"
	"time"

	"github.com/sakif/snipvault/internal/model"
)

type contextKey struct{}

var ownerKey contextKey

// WithOwner returns a context scoped to the given owner id. Adapters
// restrict every row they touch to this owner.
func WithOwner(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ownerKey, userID)
}

// OwnerFromContext reports the owner scope attached to ctx, if any.
// An unscoped context sees all rows; only trusted internal paths (tests,
// maintenance jobs) should run unscoped.
func OwnerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerKey).(string)
	return id, ok && id != ""
}

// SnippetQuery is the portion of a listing that is pushed down to the
// store: the view predicate plus the language and substring filters.
// Tag-set filtering is deliberately not part of it — that happens in
// memory after the join.
type SnippetQuery struct {
	View     model.SnippetView
	Language string // equality filter, empty = no filter
	Search   string // case-insensitive substring across title/content/description
}

// SnippetRepository is typed access to the snippets relation.
// Results are ordered by updated_at descending with a deterministic
// tie-break.
type SnippetRepository interface {
	CreateSnippet(ctx context.Context, s *model.Snippet) error
	GetSnippet(ctx context.Context, id string) (*model.Snippet, error)
	ListSnippets(ctx context.Context, q SnippetQuery) ([]model.Snippet, error)
	PatchSnippet(ctx context.Context, id string, patch model.SnippetPatch) error
	SetDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
	DeleteSnippet(ctx context.Context, id string) error
}

// MembershipRepository is typed access to the snippet_tags join relation.
type MembershipRepository interface {
	ListMemberships(ctx context.Context, snippetIDs []string) ([]model.SnippetTag, error)
	DeleteMemberships(ctx context.Context, snippetID string) error
	InsertMemberships(ctx context.Context, snippetID string, tagIDs []string) error
}

// TagRepository is typed access to the tags relation. Deleting a tag also
// clears its memberships (the adapter owns how — cascade or explicit).
type TagRepository interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	ListTagsByIDs(ctx context.Context, ids []string) ([]model.Tag, error)
	CreateTag(ctx context.Context, t *model.Tag) error
	DeleteTag(ctx context.Context, id string) error
}

// UserRepository is typed access to the users relation.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertGitHubUser(ctx context.Context, u *model.User) error
}
