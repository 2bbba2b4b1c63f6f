package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sakif/snipvault/internal/model"
)

const (
	listCacheSize    = 256
	snippetCacheSize = 1024
	tagCacheSize     = 64
)

var _ Cache = (*Memory)(nil)

// Memory is the in-process cache backend: one LRU per key family, so a
// family invalidation is a Purge. Eviction never affects correctness, only
// hit rate. Memory ignores the context entirely.
type Memory struct {
	lists    *lru.Cache[string, []model.SnippetWithTags]
	snippets *lru.Cache[string, model.SnippetWithTags]
	tags     *lru.Cache[string, []model.Tag]
}

// NewMemory creates a Memory cache with fixed per-family capacities.
func NewMemory() *Memory {
	// lru.New only fails on a non-positive size.
	lists, _ := lru.New[string, []model.SnippetWithTags](listCacheSize)
	snippets, _ := lru.New[string, model.SnippetWithTags](snippetCacheSize)
	tags, _ := lru.New[string, []model.Tag](tagCacheSize)
	return &Memory{lists: lists, snippets: snippets, tags: tags}
}

func (m *Memory) GetSnippetList(_ context.Context, key string) ([]model.SnippetWithTags, bool) {
	return m.lists.Get(key)
}

func (m *Memory) SetSnippetList(_ context.Context, key string, snippets []model.SnippetWithTags) {
	m.lists.Add(key, snippets)
}

func (m *Memory) InvalidateSnippetLists(_ context.Context) {
	m.lists.Purge()
}

func (m *Memory) GetSnippet(_ context.Context, key string) (*model.SnippetWithTags, bool) {
	s, ok := m.snippets.Get(key)
	if !ok {
		return nil, false
	}
	return &s, true
}

func (m *Memory) SetSnippet(_ context.Context, key string, s *model.SnippetWithTags) {
	if s == nil {
		return
	}
	m.snippets.Add(key, *s)
}

func (m *Memory) InvalidateSnippet(_ context.Context, key string) {
	m.snippets.Remove(key)
}

func (m *Memory) InvalidateSnippets(_ context.Context) {
	m.snippets.Purge()
}

func (m *Memory) GetTagList(_ context.Context, key string) ([]model.Tag, bool) {
	return m.tags.Get(key)
}

func (m *Memory) SetTagList(_ context.Context, key string, tags []model.Tag) {
	m.tags.Add(key, tags)
}

func (m *Memory) InvalidateTagLists(_ context.Context) {
	m.tags.Purge()
}
