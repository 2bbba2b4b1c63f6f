package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/cache"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

// TagService owns tag creation and deletion. Duplicate names are allowed —
// whether to reject them is store policy, not enforced here.
//
// Tag-list cache keys carry an epoch like the snippet families do, so a
// list read racing a mutation cannot refill the cache with pre-mutation
// rows under a key later reads would hit.
type TagService struct {
	tags     repository.TagRepository
	cache    cache.Cache
	snippets *SnippetService
	logger   *slog.Logger

	epoch atomic.Uint64
}

func NewTagService(tags repository.TagRepository, c cache.Cache, snippets *SnippetService, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, cache: c, snippets: snippets, logger: logger}
}

// List returns all tags ordered by name ascending; no tags is an empty
// list, not an error.
func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	owner, _ := repository.OwnerFromContext(ctx)
	key := fmt.Sprintf("%s|e=%d", cache.TagsKey(owner), s.epoch.Load())

	if cached, ok := s.cache.GetTagList(ctx, key); ok {
		return cached, nil
	}

	tags, err := s.tags.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	s.cache.SetTagList(ctx, key, tags)
	return tags, nil
}

// Create adds a tag for the given owner. An empty color falls back to the
// fixed palette, picked deterministically from the name.
func (s *TagService) Create(ctx context.Context, owner, name, color string) (*model.Tag, error) {
	if owner == "" {
		return nil, apperror.Unauthenticated("sign in to create tags")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "tag name is required")
	}
	if color == "" {
		color = model.DefaultTagColor(name)
	}

	tag := &model.Tag{Name: name, Color: color, UserID: owner}
	if err := s.tags.CreateTag(ctx, tag); err != nil {
		s.logger.Error("failed to create tag",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating tag: %w", err)
	}

	s.epoch.Add(1)
	s.cache.InvalidateTagLists(ctx)

	s.logger.Info("tag created", slog.String("id", tag.ID), slog.String("name", tag.Name))
	return tag, nil
}

// Delete removes a tag and, through the store's cascade, every membership
// that referenced it. The tag list and both snippet families are
// invalidated, the latter through the snippet engine so its epochs advance
// too. That cross-cache invalidation is part of the contract, not an
// optimization.
func (s *TagService) Delete(ctx context.Context, id string) error {
	if err := s.tags.DeleteTag(ctx, id); err != nil {
		return fmt.Errorf("deleting tag %s: %w", id, err)
	}

	s.epoch.Add(1)
	s.cache.InvalidateTagLists(ctx)
	s.snippets.InvalidateCached(ctx)

	s.logger.Info("tag deleted", slog.String("id", id))
	return nil
}
