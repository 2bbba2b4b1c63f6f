package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

const snippetColumns = `id, title, content, description, language, is_favorite, deleted_at, created_at, updated_at, user_id`

// CreateSnippet inserts a new snippet row. The adapter generates the id and
// timestamps and writes them back onto s; s.UserID must already be set by
// the caller (the engine injects the resolved owner, never the client).
func (db *DB) CreateSnippet(ctx context.Context, s *model.Snippet) error {
	s.ID = xid.New().String()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, title, content, description, language, is_favorite, deleted_at, created_at, updated_at, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.Title,
		s.Content,
		nullString(s.Description),
		s.Language,
		s.IsFavorite,
		nullTime(s.DeletedAt),
		s.CreatedAt,
		s.UpdatedAt,
		s.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}
	return nil
}

// GetSnippet fetches a single snippet by id, trashed or not.
func (db *DB) GetSnippet(ctx context.Context, id string) (*model.Snippet, error) {
	clause, args := ownerClause(ctx, "user_id")
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ?`+clause,
		append([]any{id}, args...)...,
	)

	s, err := scanSnippet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}
	return s, nil
}

// ListSnippets runs the pushed-down portion of a listing: the view
// predicate, the language equality filter, and the case-insensitive
// substring search across title, content, and description. Results come
// back ordered by updated_at descending; id breaks ties so identical
// inputs always produce identical output.
func (db *DB) ListSnippets(ctx context.Context, q repository.SnippetQuery) ([]model.Snippet, error) {
	var (
		where []string
		args  []any
	)

	if q.View == model.ViewTrash {
		where = append(where, "deleted_at IS NOT NULL")
	} else {
		where = append(where, "deleted_at IS NULL")
		if q.View == model.ViewFavorites {
			where = append(where, "is_favorite = 1")
		}
	}

	if q.Language != "" {
		where = append(where, "language = ?")
		args = append(args, q.Language)
	}

	if q.Search != "" {
		pattern := likePattern(q.Search)
		where = append(where, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	if clause, ownerArgs := ownerClause(ctx, "user_id"); clause != "" {
		where = append(where, strings.TrimPrefix(clause, " AND "))
		args = append(args, ownerArgs...)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY updated_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// PatchSnippet updates exactly the fields present in patch; absent fields
// are never mentioned in the statement, so a partial update cannot clobber
// sibling columns. A non-empty patch bumps updated_at.
func (db *DB) PatchSnippet(ctx context.Context, id string, patch model.SnippetPatch) error {
	if patch.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Language != nil {
		sets = append(sets, "language = ?")
		args = append(args, *patch.Language)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())

	clause, ownerArgs := ownerClause(ctx, "user_id")
	args = append(args, id)
	args = append(args, ownerArgs...)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET `+strings.Join(sets, ", ")+` WHERE id = ?`+clause,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: patching snippet %s: %w", id, err)
	}
	return checkAffected(result, "snippet", id)
}

// SetDeletedAt moves a snippet into or out of the trash. Passing nil
// restores; passing a timestamp soft-deletes. Setting an already-set state
// again is a no-op success, which makes soft delete and restore idempotent.
func (db *DB) SetDeletedAt(ctx context.Context, id string, deletedAt *time.Time) error {
	clause, ownerArgs := ownerClause(ctx, "user_id")
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET deleted_at = ? WHERE id = ?`+clause,
		append([]any{nullTime(deletedAt), id}, ownerArgs...)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting deleted_at for snippet %s: %w", id, err)
	}
	return checkAffected(result, "snippet", id)
}

// SetFavorite writes the caller-supplied target value. There is no
// read-then-flip here — the caller computes the new value from its last
// known state.
func (db *DB) SetFavorite(ctx context.Context, id string, favorite bool) error {
	clause, ownerArgs := ownerClause(ctx, "user_id")
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET is_favorite = ? WHERE id = ?`+clause,
		append([]any{favorite, id}, ownerArgs...)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting favorite for snippet %s: %w", id, err)
	}
	return checkAffected(result, "snippet", id)
}

// DeleteSnippet physically removes the row. Membership cleanup is the
// schema's job: snippet_tags carries ON DELETE CASCADE.
func (db *DB) DeleteSnippet(ctx context.Context, id string) error {
	clause, ownerArgs := ownerClause(ctx, "user_id")
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ?`+clause,
		append([]any{id}, ownerArgs...)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}
	return checkAffected(result, "snippet", id)
}

// scanner lets scanSnippet work with both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row scanner) (*model.Snippet, error) {
	var (
		s           model.Snippet
		description sql.NullString
		deletedAt   sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Content,
		&description,
		&s.Language,
		&s.IsFavorite,
		&deletedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.UserID,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		s.Description = &description.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	return &s, nil
}

func checkAffected(result sql.Result, resource, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// likePattern wraps the search term in wildcards and escapes LIKE
// metacharacters so user input matches literally.
func likePattern(search string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(search)
	return "%" + escaped + "%"
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
