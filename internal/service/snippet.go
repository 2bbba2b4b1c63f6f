// Package service contains the business logic layer: the snippet
// aggregation engine, the tag service, and the authentication service.
// Services accept repository interfaces and return domain errors; they know
// nothing about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/cache"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// SnippetService is the aggregation engine: it reconciles the snippets,
// tags, and snippet_tags relations into SnippetWithTags view models, and
// runs the mutations that keep the relations consistent.
//
// Read path: the view predicate plus the language and substring filters are
// pushed to the store; the tag join and the tag-set filter happen in memory
// here. Results are cached per (owner, view, filters); every mutation
// invalidates the whole listing family because a single mutation can move a
// snippet between views.
//
// Cache keys carry a per-family epoch, bumped on every invalidation. A read
// that started before a mutation writes its result under the epoch it
// captured at the start, so a refill racing the mutation lands on a key no
// later read will ever look up — a mutation's invalidation is visible to
// every read issued after the mutation returns.
type SnippetService struct {
	snippets    repository.SnippetRepository
	memberships repository.MembershipRepository
	tags        repository.TagRepository
	cache       cache.Cache
	group       singleflight.Group
	logger      *slog.Logger

	listEpoch    atomic.Uint64
	snippetEpoch atomic.Uint64
}

// NewSnippetService wires the engine to its store adapters and cache.
func NewSnippetService(
	snippets repository.SnippetRepository,
	memberships repository.MembershipRepository,
	tags repository.TagRepository,
	c cache.Cache,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		snippets:    snippets,
		memberships: memberships,
		tags:        tags,
		cache:       c,
		logger:      logger,
	}
}

// CreateSnippetInput is the caller-editable portion of a new snippet.
// The owner is never part of it — the engine injects the resolved owner.
type CreateSnippetInput struct {
	Title       string
	Content     string
	Description *string
	Language    string
	TagIDs      []string
}

// UpdateSnippetInput is a partial update. Nil scalar fields are left
// untouched. TagIDs nil means "leave memberships alone"; a pointer to an
// empty slice replaces the membership set with nothing.
type UpdateSnippetInput struct {
	ID          string
	Title       *string
	Content     *string
	Description *string
	Language    *string
	TagIDs      *[]string
}

// List returns the snippets of the given view that pass the filters, newest
// update first, each with its full tag list resolved. Zero matches is an
// empty slice, not an error. Any store failure aborts the whole read.
func (s *SnippetService) List(ctx context.Context, view model.SnippetView, filters model.FilterState) ([]model.SnippetWithTags, error) {
	if !view.Valid() {
		return nil, apperror.ValidationFailed("view", fmt.Sprintf("unknown view %q", view))
	}

	owner, _ := repository.OwnerFromContext(ctx)
	key := fmt.Sprintf("%s|e=%d", cache.ListKey(owner, view, filters), s.listEpoch.Load())

	if cached, ok := s.cache.GetSnippetList(ctx, key); ok {
		return cached, nil
	}

	// singleflight collapses concurrent misses on the same key into one
	// store round-trip. Purely a load concern; correctness never depends
	// on it.
	v, err, _ := s.group.Do("list:"+key, func() (any, error) {
		result, err := s.fetchList(ctx, view, filters)
		if err != nil {
			return nil, err
		}
		s.cache.SetSnippetList(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.SnippetWithTags), nil
}

func (s *SnippetService) fetchList(ctx context.Context, view model.SnippetView, filters model.FilterState) ([]model.SnippetWithTags, error) {
	snippets, err := s.snippets.ListSnippets(ctx, repository.SnippetQuery{
		View:     view,
		Language: filters.Language,
		Search:   filters.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	// Required short-circuit: zero snippets means no membership or tag
	// query may be issued at all.
	if len(snippets) == 0 {
		return []model.SnippetWithTags{}, nil
	}

	snippetIDs := make([]string, len(snippets))
	for i, sn := range snippets {
		snippetIDs[i] = sn.ID
	}

	tagsBySnippet, err := s.resolveTags(ctx, snippetIDs)
	if err != nil {
		return nil, err
	}

	result := make([]model.SnippetWithTags, 0, len(snippets))
	for _, sn := range snippets {
		tags := tagsBySnippet[sn.ID]
		if tags == nil {
			tags = []model.Tag{}
		}
		result = append(result, model.SnippetWithTags{Snippet: sn, Tags: tags})
	}

	// Tag-set filtering stays client-side, after the join: a snippet
	// survives only if its tags are a superset of the selected set (AND
	// semantics).
	if len(filters.TagIDs) > 0 {
		filtered := make([]model.SnippetWithTags, 0, len(result))
		for _, sn := range result {
			if hasAllTags(sn.Tags, filters.TagIDs) {
				filtered = append(filtered, sn)
			}
		}
		result = filtered
	}

	return result, nil
}

// resolveTags batch-loads the membership rows for the given snippets, then
// the distinct referenced tags, and groups the tags by snippet id. A
// membership pointing at a tag the current scope cannot see is dropped
// silently, mirroring how the join behaves under row-level policy.
func (s *SnippetService) resolveTags(ctx context.Context, snippetIDs []string) (map[string][]model.Tag, error) {
	memberships, err := s.memberships.ListMemberships(ctx, snippetIDs)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	if len(memberships) == 0 {
		return map[string][]model.Tag{}, nil
	}

	seen := make(map[string]bool)
	tagIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if !seen[m.TagID] {
			seen[m.TagID] = true
			tagIDs = append(tagIDs, m.TagID)
		}
	}

	tags, err := s.tags.ListTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	tagByID := make(map[string]model.Tag, len(tags))
	for _, t := range tags {
		tagByID[t.ID] = t
	}

	grouped := make(map[string][]model.Tag)
	for _, m := range memberships {
		if t, ok := tagByID[m.TagID]; ok {
			grouped[m.SnippetID] = append(grouped[m.SnippetID], t)
		}
	}
	return grouped, nil
}

func hasAllTags(tags []model.Tag, wanted []string) bool {
	for _, want := range wanted {
		found := false
		for _, t := range tags {
			if t.ID == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Get returns one snippet with its tags resolved, cached by id. An empty id
// never reaches the store. A missing snippet is NotFound — distinct from a
// listing's empty result, which is success.
func (s *SnippetService) Get(ctx context.Context, id string) (*model.SnippetWithTags, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet id is required")
	}

	owner, _ := repository.OwnerFromContext(ctx)
	key := fmt.Sprintf("%s|e=%d", cache.SnippetKey(owner, id), s.snippetEpoch.Load())

	if cached, ok := s.cache.GetSnippet(ctx, key); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do("get:"+key, func() (any, error) {
		snippet, err := s.snippets.GetSnippet(ctx, id)
		if err != nil {
			return nil, err
		}
		tagsBySnippet, err := s.resolveTags(ctx, []string{id})
		if err != nil {
			return nil, err
		}
		tags := tagsBySnippet[id]
		if tags == nil {
			tags = []model.Tag{}
		}
		result := &model.SnippetWithTags{Snippet: *snippet, Tags: tags}
		s.cache.SetSnippet(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.SnippetWithTags), nil
}

// Create inserts a new snippet for the given owner, then its memberships if
// any tag ids were supplied. The two inserts are independent store calls —
// a membership failure after the snippet insert propagates to the caller
// rather than being reported as success.
func (s *SnippetService) Create(ctx context.Context, owner string, in CreateSnippetInput) (*model.Snippet, error) {
	if owner == "" {
		return nil, apperror.Unauthenticated("sign in to create snippets")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "snippet title is required")
	}
	if in.Content == "" {
		return nil, apperror.ValidationFailed("content", "snippet content is required")
	}
	if !model.ValidLanguage(in.Language) {
		return nil, apperror.ValidationFailed("language", fmt.Sprintf("unknown language %q", in.Language))
	}

	snippet := &model.Snippet{
		Title:       title,
		Content:     in.Content,
		Description: in.Description,
		Language:    in.Language,
		UserID:      owner,
	}
	if err := s.snippets.CreateSnippet(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	if len(in.TagIDs) > 0 {
		if err := s.memberships.InsertMemberships(ctx, snippet.ID, in.TagIDs); err != nil {
			s.logger.Error("failed to attach tags to new snippet",
				slog.String("id", snippet.ID),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("attaching tags to snippet %s: %w", snippet.ID, err)
		}
	}

	s.listEpoch.Add(1)
	s.cache.InvalidateSnippetLists(ctx)

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("language", snippet.Language),
	)
	return snippet, nil
}

// Update applies a partial patch. Scalar fields present in the input are
// written in one statement; fields absent are never touched. A present
// TagIDs replaces the whole membership set, delete-then-insert, so stale
// rows can never collide with the incoming ones.
func (s *SnippetService) Update(ctx context.Context, in UpdateSnippetInput) error {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet id is required")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return apperror.ValidationFailed("title", "snippet title cannot be empty")
	}
	if in.Content != nil && *in.Content == "" {
		return apperror.ValidationFailed("content", "snippet content cannot be empty")
	}
	if in.Language != nil && !model.ValidLanguage(*in.Language) {
		return apperror.ValidationFailed("language", fmt.Sprintf("unknown language %q", *in.Language))
	}

	patch := model.SnippetPatch{
		Title:       in.Title,
		Content:     in.Content,
		Description: in.Description,
		Language:    in.Language,
	}
	if !patch.Empty() {
		if err := s.snippets.PatchSnippet(ctx, id, patch); err != nil {
			return fmt.Errorf("updating snippet %s: %w", id, err)
		}
	}

	if in.TagIDs != nil {
		if err := s.memberships.DeleteMemberships(ctx, id); err != nil {
			return fmt.Errorf("clearing tags for snippet %s: %w", id, err)
		}
		if len(*in.TagIDs) > 0 {
			if err := s.memberships.InsertMemberships(ctx, id, *in.TagIDs); err != nil {
				return fmt.Errorf("replacing tags for snippet %s: %w", id, err)
			}
		}
	}

	s.invalidateSnippet(ctx, id)

	s.logger.Info("snippet updated", slog.String("id", id))
	return nil
}

// SoftDelete moves a snippet to the trash. Trashing an already-trashed
// snippet succeeds without complaint.
func (s *SnippetService) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	if err := s.snippets.SetDeletedAt(ctx, id, &now); err != nil {
		return fmt.Errorf("soft-deleting snippet %s: %w", id, err)
	}
	s.invalidateSnippet(ctx, id)
	s.logger.Info("snippet trashed", slog.String("id", id))
	return nil
}

// Restore clears the trash marker. Restoring an active snippet is a no-op
// success.
func (s *SnippetService) Restore(ctx context.Context, id string) error {
	if err := s.snippets.SetDeletedAt(ctx, id, nil); err != nil {
		return fmt.Errorf("restoring snippet %s: %w", id, err)
	}
	s.invalidateSnippet(ctx, id)
	s.logger.Info("snippet restored", slog.String("id", id))
	return nil
}

// PermanentDelete physically removes the snippet. Membership rows are the
// store's referential-integrity problem; the engine does not verify they
// are gone.
func (s *SnippetService) PermanentDelete(ctx context.Context, id string) error {
	if err := s.snippets.DeleteSnippet(ctx, id); err != nil {
		return fmt.Errorf("deleting snippet %s: %w", id, err)
	}
	s.invalidateSnippet(ctx, id)
	s.logger.Info("snippet permanently deleted", slog.String("id", id))
	return nil
}

// ToggleFavorite writes the caller-supplied target value. The caller
// computes the new value from its last known state, saving a read
// round-trip here.
func (s *SnippetService) ToggleFavorite(ctx context.Context, id string, favorite bool) error {
	if err := s.snippets.SetFavorite(ctx, id, favorite); err != nil {
		return fmt.Errorf("toggling favorite for snippet %s: %w", id, err)
	}
	s.invalidateSnippet(ctx, id)
	s.logger.Info("snippet favorite toggled",
		slog.String("id", id),
		slog.Bool("favorite", favorite),
	)
	return nil
}

// InvalidateCached drops every cached snippet read, listings and single
// entries alike. Tag mutations call it: cached snippet views embed tag
// rows, and leaving them would keep showing a deleted tag.
func (s *SnippetService) InvalidateCached(ctx context.Context) {
	s.listEpoch.Add(1)
	s.snippetEpoch.Add(1)
	s.cache.InvalidateSnippetLists(ctx)
	s.cache.InvalidateSnippets(ctx)
}

// invalidateSnippet clears the full listing family plus the one single
// entry an id-addressed mutation can affect. The epoch bumps come first so
// an in-flight read can no longer publish a stale refill under a live key.
func (s *SnippetService) invalidateSnippet(ctx context.Context, id string) {
	owner, _ := repository.OwnerFromContext(ctx)
	stale := s.snippetEpoch.Add(1) - 1
	s.listEpoch.Add(1)
	s.cache.InvalidateSnippetLists(ctx)
	s.cache.InvalidateSnippet(ctx, fmt.Sprintf("%s|e=%d", cache.SnippetKey(owner, id), stale))
}
