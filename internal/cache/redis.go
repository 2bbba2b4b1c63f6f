package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sakif/snipvault/internal/model"
)

const (
	listKeyPrefix    = "snipvault:lists:"
	snippetKeyPrefix = "snipvault:snippet:"
	tagsKeyPrefix    = "snipvault:tags:"

	// Index sets enumerating the live keys of each family, so a family can
	// be invalidated wholesale without a SCAN.
	listIndexKey    = "snipvault:lists"
	snippetIndexKey = "snipvault:snippets"
	tagsIndexKey    = "snipvault:tags"

	redisTTL = 5 * time.Minute
)

var _ Cache = (*Redis)(nil)

// Redis is the shared cache backend for multi-process deployments. Values
// are JSON; each family keeps a SET of its live keys so invalidation is a
// membership read plus one pipelined DEL. Every redis failure degrades to a
// cache miss and is logged, never returned.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis wraps an existing redis client.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

func (r *Redis) GetSnippetList(ctx context.Context, key string) ([]model.SnippetWithTags, bool) {
	var snippets []model.SnippetWithTags
	if !r.get(ctx, listKeyPrefix+key, &snippets) {
		return nil, false
	}
	return snippets, true
}

func (r *Redis) SetSnippetList(ctx context.Context, key string, snippets []model.SnippetWithTags) {
	r.setIndexed(ctx, listKeyPrefix+key, listIndexKey, snippets)
}

func (r *Redis) InvalidateSnippetLists(ctx context.Context) {
	r.invalidateFamily(ctx, listIndexKey)
}

func (r *Redis) GetSnippet(ctx context.Context, key string) (*model.SnippetWithTags, bool) {
	var s model.SnippetWithTags
	if !r.get(ctx, snippetKeyPrefix+key, &s) {
		return nil, false
	}
	return &s, true
}

func (r *Redis) SetSnippet(ctx context.Context, key string, s *model.SnippetWithTags) {
	if s == nil {
		return
	}
	r.setIndexed(ctx, snippetKeyPrefix+key, snippetIndexKey, s)
}

func (r *Redis) InvalidateSnippet(ctx context.Context, key string) {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, snippetKeyPrefix+key)
	pipe.SRem(ctx, snippetIndexKey, snippetKeyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("cache: redis del failed", slog.String("error", err.Error()))
	}
}

func (r *Redis) InvalidateSnippets(ctx context.Context) {
	r.invalidateFamily(ctx, snippetIndexKey)
}

func (r *Redis) GetTagList(ctx context.Context, key string) ([]model.Tag, bool) {
	var tags []model.Tag
	if !r.get(ctx, tagsKeyPrefix+key, &tags) {
		return nil, false
	}
	return tags, true
}

func (r *Redis) SetTagList(ctx context.Context, key string, tags []model.Tag) {
	r.setIndexed(ctx, tagsKeyPrefix+key, tagsIndexKey, tags)
}

func (r *Redis) InvalidateTagLists(ctx context.Context) {
	r.invalidateFamily(ctx, tagsIndexKey)
}

// get loads and unmarshals one key; any failure is a miss.
func (r *Redis) get(ctx context.Context, key string, dest any) bool {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache: redis get failed", slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		r.logger.Warn("cache: corrupt cache entry", slog.String("key", key))
		return false
	}
	return true
}

// setIndexed writes a value and records its key in the family's index set.
func (r *Redis) setIndexed(ctx context.Context, key, indexKey string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Error("cache: marshaling value", slog.String("error", err.Error()))
		return
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, data, redisTTL)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("cache: redis set failed", slog.String("error", err.Error()))
	}
}

// invalidateFamily deletes every key the index set knows about, then the
// index itself. Keys already expired by TTL delete as no-ops.
func (r *Redis) invalidateFamily(ctx context.Context, indexKey string) {
	keys, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		r.logger.Warn("cache: redis smembers failed", slog.String("error", err.Error()))
		return
	}
	pipe := r.client.Pipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, indexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("cache: redis del failed", slog.String("error", err.Error()))
	}
}
