package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/cache"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// mockStore implements the snippet, membership, and tag repositories against
// in-memory maps. It records call counts so tests can assert which relations
// a read actually touched.
type mockStore struct {
	snippets    map[string]*model.Snippet
	memberships []model.SnippetTag
	tags        map[string]*model.Tag
	nextID      int

	listSnippetCalls    int
	listMembershipCalls int
	listTagByIDCalls    int

	failListSnippets error
	failMemberships  error

	// Hooks fire after the read has produced its rows, the window in which
	// a concurrent mutation can land before the engine caches the result.
	afterListSnippets func()
	afterGetSnippet   func()
	afterListTags     func()
}

func newMockStore() *mockStore {
	return &mockStore{
		snippets: make(map[string]*model.Snippet),
		tags:     make(map[string]*model.Tag),
	}
}

func (m *mockStore) owner(ctx context.Context) (string, bool) {
	return repository.OwnerFromContext(ctx)
}

func (m *mockStore) CreateSnippet(_ context.Context, s *model.Snippet) error {
	m.nextID++
	s.ID = fmt.Sprintf("snip-%d", m.nextID)
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	stored := *s
	m.snippets[s.ID] = &stored
	return nil
}

func (m *mockStore) GetSnippet(ctx context.Context, id string) (*model.Snippet, error) {
	s, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	if owner, scoped := m.owner(ctx); scoped && s.UserID != owner {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *s
	if m.afterGetSnippet != nil {
		m.afterGetSnippet()
	}
	return &result, nil
}

func (m *mockStore) ListSnippets(ctx context.Context, q repository.SnippetQuery) ([]model.Snippet, error) {
	m.listSnippetCalls++
	if m.failListSnippets != nil {
		return nil, m.failListSnippets
	}

	owner, scoped := m.owner(ctx)
	result := make([]model.Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		if scoped && s.UserID != owner {
			continue
		}
		switch q.View {
		case model.ViewTrash:
			if s.DeletedAt == nil {
				continue
			}
		case model.ViewFavorites:
			if s.DeletedAt != nil || !s.IsFavorite {
				continue
			}
		default:
			if s.DeletedAt != nil {
				continue
			}
		}
		if q.Language != "" && s.Language != q.Language {
			continue
		}
		if q.Search != "" && !matchesSearch(s, q.Search) {
			continue
		}
		result = append(result, *s)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if m.afterListSnippets != nil {
		m.afterListSnippets()
	}
	return result, nil
}

func matchesSearch(s *model.Snippet, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(s.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(s.Content), needle) {
		return true
	}
	return s.Description != nil && strings.Contains(strings.ToLower(*s.Description), needle)
}

func (m *mockStore) PatchSnippet(_ context.Context, id string, patch model.SnippetPatch) error {
	s, ok := m.snippets[id]
	if !ok {
		return apperror.NotFound("snippet", id)
	}
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.Content != nil {
		s.Content = *patch.Content
	}
	if patch.Description != nil {
		s.Description = patch.Description
	}
	if patch.Language != nil {
		s.Language = *patch.Language
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockStore) SetDeletedAt(_ context.Context, id string, deletedAt *time.Time) error {
	s, ok := m.snippets[id]
	if !ok {
		return apperror.NotFound("snippet", id)
	}
	s.DeletedAt = deletedAt
	return nil
}

func (m *mockStore) SetFavorite(_ context.Context, id string, favorite bool) error {
	s, ok := m.snippets[id]
	if !ok {
		return apperror.NotFound("snippet", id)
	}
	s.IsFavorite = favorite
	return nil
}

func (m *mockStore) DeleteSnippet(_ context.Context, id string) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	kept := m.memberships[:0]
	for _, mem := range m.memberships {
		if mem.SnippetID != id {
			kept = append(kept, mem)
		}
	}
	m.memberships = kept
	return nil
}

func (m *mockStore) ListMemberships(_ context.Context, snippetIDs []string) ([]model.SnippetTag, error) {
	m.listMembershipCalls++
	if m.failMemberships != nil {
		return nil, m.failMemberships
	}
	wanted := make(map[string]bool, len(snippetIDs))
	for _, id := range snippetIDs {
		wanted[id] = true
	}
	var result []model.SnippetTag
	for _, mem := range m.memberships {
		if wanted[mem.SnippetID] {
			result = append(result, mem)
		}
	}
	return result, nil
}

// snippetVisible mirrors the real adapter: membership writes treat a
// snippet the owner scope hides exactly like a missing one.
func (m *mockStore) snippetVisible(ctx context.Context, snippetID string) error {
	s, ok := m.snippets[snippetID]
	if !ok {
		return apperror.NotFound("snippet", snippetID)
	}
	if owner, scoped := m.owner(ctx); scoped && s.UserID != owner {
		return apperror.NotFound("snippet", snippetID)
	}
	return nil
}

func (m *mockStore) DeleteMemberships(ctx context.Context, snippetID string) error {
	if err := m.snippetVisible(ctx, snippetID); err != nil {
		return err
	}
	kept := m.memberships[:0]
	for _, mem := range m.memberships {
		if mem.SnippetID != snippetID {
			kept = append(kept, mem)
		}
	}
	m.memberships = kept
	return nil
}

func (m *mockStore) InsertMemberships(ctx context.Context, snippetID string, tagIDs []string) error {
	if err := m.snippetVisible(ctx, snippetID); err != nil {
		return err
	}
	owner, scoped := m.owner(ctx)
	for _, tagID := range tagIDs {
		t, ok := m.tags[tagID]
		if !ok || (scoped && t.UserID != owner) {
			return apperror.NotFound("tag", tagID)
		}
		m.memberships = append(m.memberships, model.SnippetTag{SnippetID: snippetID, TagID: tagID})
	}
	return nil
}

func (m *mockStore) ListTags(ctx context.Context) ([]model.Tag, error) {
	owner, scoped := m.owner(ctx)
	result := make([]model.Tag, 0, len(m.tags))
	for _, t := range m.tags {
		if scoped && t.UserID != owner {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if m.afterListTags != nil {
		m.afterListTags()
	}
	return result, nil
}

func (m *mockStore) ListTagsByIDs(_ context.Context, ids []string) ([]model.Tag, error) {
	m.listTagByIDCalls++
	var result []model.Tag
	for _, id := range ids {
		if t, ok := m.tags[id]; ok {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockStore) CreateTag(_ context.Context, t *model.Tag) error {
	m.nextID++
	t.ID = fmt.Sprintf("tag-%d", m.nextID)
	stored := *t
	m.tags[t.ID] = &stored
	return nil
}

func (m *mockStore) DeleteTag(_ context.Context, id string) error {
	if _, ok := m.tags[id]; !ok {
		return apperror.NotFound("tag", id)
	}
	delete(m.tags, id)
	kept := m.memberships[:0]
	for _, mem := range m.memberships {
		if mem.TagID != id {
			kept = append(kept, mem)
		}
	}
	m.memberships = kept
	return nil
}

// Interface checks: the mock must stay in sync with the real adapters.
var (
	_ repository.SnippetRepository    = (*mockStore)(nil)
	_ repository.MembershipRepository = (*mockStore)(nil)
	_ repository.TagRepository        = (*mockStore)(nil)
)

// spyCache is a map-backed Cache that counts family invalidations.
type spyCache struct {
	lists    map[string][]model.SnippetWithTags
	singles  map[string]*model.SnippetWithTags
	tagLists map[string][]model.Tag

	listInvalidations int
	tagInvalidations  int
}

func newSpyCache() *spyCache {
	return &spyCache{
		lists:    make(map[string][]model.SnippetWithTags),
		singles:  make(map[string]*model.SnippetWithTags),
		tagLists: make(map[string][]model.Tag),
	}
}

func (c *spyCache) GetSnippetList(_ context.Context, key string) ([]model.SnippetWithTags, bool) {
	v, ok := c.lists[key]
	return v, ok
}

func (c *spyCache) SetSnippetList(_ context.Context, key string, snippets []model.SnippetWithTags) {
	c.lists[key] = snippets
}

func (c *spyCache) InvalidateSnippetLists(_ context.Context) {
	c.listInvalidations++
	c.lists = make(map[string][]model.SnippetWithTags)
}

func (c *spyCache) GetSnippet(_ context.Context, key string) (*model.SnippetWithTags, bool) {
	v, ok := c.singles[key]
	return v, ok
}

func (c *spyCache) SetSnippet(_ context.Context, key string, s *model.SnippetWithTags) {
	c.singles[key] = s
}

func (c *spyCache) InvalidateSnippet(_ context.Context, key string) {
	delete(c.singles, key)
}

func (c *spyCache) InvalidateSnippets(_ context.Context) {
	c.singles = make(map[string]*model.SnippetWithTags)
}

func (c *spyCache) GetTagList(_ context.Context, key string) ([]model.Tag, bool) {
	v, ok := c.tagLists[key]
	return v, ok
}

func (c *spyCache) SetTagList(_ context.Context, key string, tags []model.Tag) {
	c.tagLists[key] = tags
}

func (c *spyCache) InvalidateTagLists(_ context.Context) {
	c.tagInvalidations++
	c.tagLists = make(map[string][]model.Tag)
}

var _ cache.Cache = (*spyCache)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T) (*SnippetService, *mockStore, *spyCache) {
	t.Helper()
	store := newMockStore()
	c := newSpyCache()
	svc := NewSnippetService(store, store, store, c, testLogger())
	return svc, store, c
}

const testOwner = "user-1"

func ownerCtx() context.Context {
	return repository.WithOwner(context.Background(), testOwner)
}

func seedSnippet(t *testing.T, store *mockStore, title, language string, mutate func(*model.Snippet)) *model.Snippet {
	t.Helper()
	s := &model.Snippet{
		Title:    title,
		Content:  "content of " + title,
		Language: language,
		UserID:   testOwner,
	}
	require.NoError(t, store.CreateSnippet(context.Background(), s))
	if mutate != nil {
		mutate(store.snippets[s.ID])
	}
	return s
}

func seedTag(t *testing.T, store *mockStore, name string) *model.Tag {
	t.Helper()
	tag := &model.Tag{Name: name, Color: "#6366f1", UserID: testOwner}
	require.NoError(t, store.CreateTag(context.Background(), tag))
	return tag
}

func TestListViewPartition(t *testing.T) {
	svc, store, _ := newTestService(t)

	active := seedSnippet(t, store, "active", "go", nil)
	favorite := seedSnippet(t, store, "favorite", "go", func(s *model.Snippet) {
		s.IsFavorite = true
	})
	trashed := seedSnippet(t, store, "trashed", "go", func(s *model.Snippet) {
		now := time.Now().UTC()
		s.DeletedAt = &now
		s.IsFavorite = true
	})

	all, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{active.ID, favorite.ID}, idsOf(all))

	favorites, err := svc.List(ownerCtx(), model.ViewFavorites, model.FilterState{})
	require.NoError(t, err)
	require.Equal(t, []string{favorite.ID}, idsOf(favorites))

	trash, err := svc.List(ownerCtx(), model.ViewTrash, model.FilterState{})
	require.NoError(t, err)
	require.Equal(t, []string{trashed.ID}, idsOf(trash))
}

func idsOf(snippets []model.SnippetWithTags) []string {
	ids := make([]string, len(snippets))
	for i, s := range snippets {
		ids[i] = s.ID
	}
	return ids
}

func TestListUnknownViewRejected(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.List(ownerCtx(), model.SnippetView("archive"), model.FilterState{})
	require.ErrorIs(t, err, apperror.ErrValidation)
	require.Zero(t, store.listSnippetCalls)
}

func TestListResolvesTags(t *testing.T) {
	svc, store, _ := newTestService(t)

	tagGo := seedTag(t, store, "golang")
	tagWeb := seedTag(t, store, "web")
	tagged := seedSnippet(t, store, "tagged", "go", nil)
	bare := seedSnippet(t, store, "bare", "go", nil)
	require.NoError(t, store.InsertMemberships(context.Background(), tagged.ID, []string{tagGo.ID, tagWeb.ID}))

	result, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)
	require.Len(t, result, 2)

	byID := make(map[string]model.SnippetWithTags)
	for _, s := range result {
		byID[s.ID] = s
	}
	require.Len(t, byID[tagged.ID].Tags, 2)
	require.NotNil(t, byID[bare.ID].Tags)
	require.Empty(t, byID[bare.ID].Tags)
}

func TestListTagFilterRequiresAllTags(t *testing.T) {
	svc, store, _ := newTestService(t)

	tagA := seedTag(t, store, "a")
	tagB := seedTag(t, store, "b")
	both := seedSnippet(t, store, "both", "go", nil)
	onlyA := seedSnippet(t, store, "only-a", "go", nil)
	seedSnippet(t, store, "neither", "go", nil)
	require.NoError(t, store.InsertMemberships(context.Background(), both.ID, []string{tagA.ID, tagB.ID}))
	require.NoError(t, store.InsertMemberships(context.Background(), onlyA.ID, []string{tagA.ID}))

	result, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{TagIDs: []string{tagA.ID, tagB.ID}})
	require.NoError(t, err)
	require.Equal(t, []string{both.ID}, idsOf(result))

	result, err = svc.List(ownerCtx(), model.ViewAll, model.FilterState{TagIDs: []string{tagA.ID}})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{both.ID, onlyA.ID}, idsOf(result))
}

func TestListEmptyResultSkipsJoinQueries(t *testing.T) {
	svc, store, _ := newTestService(t)

	result, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Empty(t, result)

	require.Equal(t, 1, store.listSnippetCalls)
	require.Zero(t, store.listMembershipCalls)
	require.Zero(t, store.listTagByIDCalls)
}

func TestListServedFromCache(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedSnippet(t, store, "cached", "go", nil)

	_, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)
	_, err = svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)

	require.Equal(t, 1, store.listSnippetCalls)
}

func TestListLanguageAndSearchScenario(t *testing.T) {
	svc, store, _ := newTestService(t)

	ts := seedSnippet(t, store, "Test Snippet", "typescript", nil)
	seedSnippet(t, store, "Fibonacci", "python", nil)

	result, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{Language: "typescript"})
	require.NoError(t, err)
	require.Equal(t, []string{ts.ID}, idsOf(result))

	result, err = svc.List(ownerCtx(), model.ViewAll, model.FilterState{Search: "test"})
	require.NoError(t, err)
	require.Equal(t, []string{ts.ID}, idsOf(result))

	result, err = svc.List(ownerCtx(), model.ViewAll, model.FilterState{Language: "python", Search: "test"})
	require.NoError(t, err)
	require.Empty(t, result)
}

func TestGetEmptyIDNeverHitsStore(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.Get(ownerCtx(), "  ")
	require.ErrorIs(t, err, apperror.ErrValidation)
	require.Zero(t, store.listMembershipCalls)
}

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(ownerCtx(), "missing")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetResolvesTags(t *testing.T) {
	svc, store, _ := newTestService(t)

	tag := seedTag(t, store, "golang")
	snippet := seedSnippet(t, store, "solo", "go", nil)
	require.NoError(t, store.InsertMemberships(context.Background(), snippet.ID, []string{tag.ID}))

	got, err := svc.Get(ownerCtx(), snippet.ID)
	require.NoError(t, err)
	require.Equal(t, snippet.ID, got.ID)
	require.Len(t, got.Tags, 1)
	require.Equal(t, tag.ID, got.Tags[0].ID)
}

func TestCreateRequiresOwner(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "", CreateSnippetInput{
		Title:    "orphan",
		Content:  "x",
		Language: "go",
	})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
	require.Empty(t, store.snippets)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := ownerCtx()

	_, err := svc.Create(ctx, testOwner, CreateSnippetInput{Content: "x", Language: "go"})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Create(ctx, testOwner, CreateSnippetInput{Title: "t", Language: "go"})
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Create(ctx, testOwner, CreateSnippetInput{Title: "t", Content: "x", Language: "klingon"})
	require.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCreateWithTags(t *testing.T) {
	svc, store, c := newTestService(t)
	tag := seedTag(t, store, "golang")

	created, err := svc.Create(ownerCtx(), testOwner, CreateSnippetInput{
		Title:    "hello",
		Content:  "fmt.Println",
		Language: "go",
		TagIDs:   []string{tag.ID},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, testOwner, created.UserID)
	require.Len(t, store.memberships, 1)
	require.Equal(t, 1, c.listInvalidations)
}

func TestCreateUnknownTagFails(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(ownerCtx(), testOwner, CreateSnippetInput{
		Title:    "hello",
		Content:  "x",
		Language: "go",
		TagIDs:   []string{"no-such-tag"},
	})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdatePartialLeavesOtherFields(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "original", "go", nil)
	tag := seedTag(t, store, "keep")
	require.NoError(t, store.InsertMemberships(context.Background(), snippet.ID, []string{tag.ID}))

	newTitle := "renamed"
	err := svc.Update(ownerCtx(), UpdateSnippetInput{ID: snippet.ID, Title: &newTitle})
	require.NoError(t, err)

	stored := store.snippets[snippet.ID]
	require.Equal(t, "renamed", stored.Title)
	require.Equal(t, "content of original", stored.Content)
	require.Equal(t, "go", stored.Language)
	require.Len(t, store.memberships, 1, "absent tagIds must leave memberships alone")
}

func TestUpdateReplacesTagSet(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "retag", "go", nil)
	old := seedTag(t, store, "old")
	fresh := seedTag(t, store, "fresh")
	require.NoError(t, store.InsertMemberships(context.Background(), snippet.ID, []string{old.ID}))

	newSet := []string{fresh.ID}
	err := svc.Update(ownerCtx(), UpdateSnippetInput{ID: snippet.ID, TagIDs: &newSet})
	require.NoError(t, err)
	require.Len(t, store.memberships, 1)
	require.Equal(t, fresh.ID, store.memberships[0].TagID)

	empty := []string{}
	err = svc.Update(ownerCtx(), UpdateSnippetInput{ID: snippet.ID, TagIDs: &empty})
	require.NoError(t, err)
	require.Empty(t, store.memberships)
}

func TestUpdateRejectsExplicitEmptyFields(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "keep", "go", nil)

	empty := "  "
	err := svc.Update(ownerCtx(), UpdateSnippetInput{ID: snippet.ID, Title: &empty})
	require.ErrorIs(t, err, apperror.ErrValidation)

	blank := ""
	err = svc.Update(ownerCtx(), UpdateSnippetInput{ID: snippet.ID, Content: &blank})
	require.ErrorIs(t, err, apperror.ErrValidation)
	require.Equal(t, "keep", store.snippets[snippet.ID].Title)
}

func TestMutationsInvalidateListings(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "flip", "go", nil)

	result, err := svc.List(ownerCtx(), model.ViewFavorites, model.FilterState{})
	require.NoError(t, err)
	require.Empty(t, result)

	require.NoError(t, svc.ToggleFavorite(ownerCtx(), snippet.ID, true))

	result, err = svc.List(ownerCtx(), model.ViewFavorites, model.FilterState{})
	require.NoError(t, err)
	require.Equal(t, []string{snippet.ID}, idsOf(result))
	require.Equal(t, 2, store.listSnippetCalls, "second favorites read must refetch")
}

func TestSoftDeleteAndRestoreAreIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "binned", "go", nil)

	require.NoError(t, svc.SoftDelete(ownerCtx(), snippet.ID))
	require.NoError(t, svc.SoftDelete(ownerCtx(), snippet.ID))
	require.NotNil(t, store.snippets[snippet.ID].DeletedAt)

	require.NoError(t, svc.Restore(ownerCtx(), snippet.ID))
	require.NoError(t, svc.Restore(ownerCtx(), snippet.ID))
	require.Nil(t, store.snippets[snippet.ID].DeletedAt)
}

func TestPermanentDeleteRemovesRow(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "gone", "go", nil)
	tag := seedTag(t, store, "t")
	require.NoError(t, store.InsertMemberships(context.Background(), snippet.ID, []string{tag.ID}))

	require.NoError(t, svc.PermanentDelete(ownerCtx(), snippet.ID))
	require.Empty(t, store.snippets)
	require.Empty(t, store.memberships)

	err := svc.PermanentDelete(ownerCtx(), snippet.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetInvalidatedAfterUpdate(t *testing.T) {
	svc, store, c := newTestService(t)
	snippet := seedSnippet(t, store, "before", "go", nil)

	got, err := svc.Get(ownerCtx(), snippet.ID)
	require.NoError(t, err)
	require.Equal(t, "before", got.Title)

	newTitle := "after"
	require.NoError(t, svc.Update(ownerCtx(), UpdateSnippetInput{ID: snippet.ID, Title: &newTitle}))
	require.Empty(t, c.singles)

	got, err = svc.Get(ownerCtx(), snippet.ID)
	require.NoError(t, err)
	require.Equal(t, "after", got.Title)
}

func TestListScopedToOwner(t *testing.T) {
	svc, store, _ := newTestService(t)
	mine := seedSnippet(t, store, "mine", "go", nil)
	other := &model.Snippet{Title: "theirs", Content: "x", Language: "go", UserID: "user-2"}
	require.NoError(t, store.CreateSnippet(context.Background(), other))

	result, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)
	require.Equal(t, []string{mine.ID}, idsOf(result))
}

func TestUpdateTagReplacementScopedToOwner(t *testing.T) {
	svc, store, _ := newTestService(t)

	theirs := &model.Snippet{Title: "theirs", Content: "x", Language: "go", UserID: "user-2"}
	require.NoError(t, store.CreateSnippet(context.Background(), theirs))
	theirTag := &model.Tag{Name: "private", Color: "#ef4444", UserID: "user-2"}
	require.NoError(t, store.CreateTag(context.Background(), theirTag))
	require.NoError(t, store.InsertMemberships(context.Background(), theirs.ID, []string{theirTag.ID}))

	// A tags-only patch skips the scalar write, so the membership writes
	// must enforce the owner scope themselves.
	mine := seedTag(t, store, "mine")
	tagIDs := []string{mine.ID}
	err := svc.Update(ownerCtx(), UpdateSnippetInput{ID: theirs.ID, TagIDs: &tagIDs})
	require.ErrorIs(t, err, apperror.ErrNotFound)
	require.Len(t, store.memberships, 1)
	require.Equal(t, theirTag.ID, store.memberships[0].TagID)
}

func TestListDoesNotCacheRowsReadBeforeAMutation(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "racer", "go", nil)

	// Trash the snippet after the store produced its rows but before the
	// engine caches them, the interleaving a concurrent mutation creates.
	store.afterListSnippets = func() {
		store.afterListSnippets = nil
		require.NoError(t, svc.SoftDelete(ownerCtx(), snippet.ID))
	}

	stale, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)
	require.Equal(t, []string{snippet.ID}, idsOf(stale))

	// A read issued after the mutation returned must see its effect.
	fresh, err := svc.List(ownerCtx(), model.ViewAll, model.FilterState{})
	require.NoError(t, err)
	require.Empty(t, fresh)
}

func TestGetDoesNotCacheRowsReadBeforeAMutation(t *testing.T) {
	svc, store, _ := newTestService(t)
	snippet := seedSnippet(t, store, "racer", "go", nil)

	store.afterGetSnippet = func() {
		store.afterGetSnippet = nil
		require.NoError(t, svc.ToggleFavorite(ownerCtx(), snippet.ID, true))
	}

	stale, err := svc.Get(ownerCtx(), snippet.ID)
	require.NoError(t, err)
	require.False(t, stale.IsFavorite)

	fresh, err := svc.Get(ownerCtx(), snippet.ID)
	require.NoError(t, err)
	require.True(t, fresh.IsFavorite)
}

func TestToggleFavoriteLogged(t *testing.T) {
	var buf bytes.Buffer
	store := newMockStore()
	svc := NewSnippetService(store, store, store, newSpyCache(),
		slog.New(slog.NewTextHandler(&buf, nil)))
	snippet := seedSnippet(t, store, "starred", "go", nil)

	require.NoError(t, svc.ToggleFavorite(ownerCtx(), snippet.ID, true))
	require.Contains(t, buf.String(), "snippet favorite toggled")
	require.Contains(t, buf.String(), snippet.ID)
}
