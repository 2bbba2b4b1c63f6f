// Package cache is the result cache sitting between the aggregation engine
// and the store. Entries fall into three key families: snippet listings
// keyed by (owner, view, filters), single snippets keyed by (owner, id),
// and the owner's tag list.
//
// The invalidation contract is deliberately broad: any snippet mutation
// clears the whole listing family, because a single mutation can move a
// snippet across views (favoriting, trashing). Backends treat their own
// failures as misses — the store stays the source of truth and a broken
// cache must never surface an error to a read.
package cache

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/sakif/snipvault/internal/model"
)

// Cache stores materialized read results until the next invalidation.
// Keys are opaque strings; the services build them from ListKey,
// SnippetKey, and TagsKey plus a per-family epoch suffix, so an entry
// written by a read that predates an invalidation is never looked up
// again. The Invalidate*s methods clear a whole family, which may span
// owners — over-invalidation is always safe under this contract.
type Cache interface {
	GetSnippetList(ctx context.Context, key string) ([]model.SnippetWithTags, bool)
	SetSnippetList(ctx context.Context, key string, snippets []model.SnippetWithTags)
	InvalidateSnippetLists(ctx context.Context)

	GetSnippet(ctx context.Context, key string) (*model.SnippetWithTags, bool)
	SetSnippet(ctx context.Context, key string, s *model.SnippetWithTags)
	InvalidateSnippet(ctx context.Context, key string)
	InvalidateSnippets(ctx context.Context)

	GetTagList(ctx context.Context, key string) ([]model.Tag, bool)
	SetTagList(ctx context.Context, key string, tags []model.Tag)
	InvalidateTagLists(ctx context.Context)
}

// ListKey canonicalizes an (owner, view, filters) triple into a comparable
// key. Tag ids are sorted and the free-form search text is escaped, so two
// filter values that are structurally equal always map to the same key and
// user input cannot smuggle in a separator.
func ListKey(owner string, view model.SnippetView, f model.FilterState) string {
	tagIDs := append([]string(nil), f.TagIDs...)
	sort.Strings(tagIDs)

	var b strings.Builder
	b.WriteString("owner=")
	b.WriteString(owner)
	b.WriteString("|view=")
	b.WriteString(string(view))
	b.WriteString("|lang=")
	b.WriteString(f.Language)
	b.WriteString("|q=")
	b.WriteString(url.QueryEscape(f.Search))
	b.WriteString("|tags=")
	b.WriteString(strings.Join(tagIDs, ","))
	return b.String()
}

// SnippetKey is the cache key for one snippet's view model.
func SnippetKey(owner, id string) string {
	return "owner=" + owner + "|id=" + id
}

// TagsKey is the cache key for an owner's full tag list.
func TagsKey(owner string) string {
	return "owner=" + owner
}
