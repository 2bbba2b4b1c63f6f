package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/snipvault/internal/apperror"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/repository"
)

var (
	_ repository.TagRepository        = (*DB)(nil)
	_ repository.MembershipRepository = (*DB)(nil)
)

// ListTags returns the owner's tags ordered by name ascending.
func (db *DB) ListTags(ctx context.Context) ([]model.Tag, error) {
	clause, args := ownerClause(ctx, "user_id")
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, color, user_id FROM tags WHERE 1=1`+clause+` ORDER BY name ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// ListTagsByIDs batch-fetches the tags for a set of ids. An empty id set
// returns an empty slice without touching the database.
func (db *DB) ListTagsByIDs(ctx context.Context, ids []string) ([]model.Tag, error) {
	if len(ids) == 0 {
		return []model.Tag{}, nil
	}

	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	clause, ownerArgs := ownerClause(ctx, "user_id")
	args = append(args, ownerArgs...)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, color, user_id FROM tags
		 WHERE id IN (`+placeholders(len(ids))+`)`+clause+`
		 ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags by ids: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// CreateTag inserts a new tag row, generating its id. t.UserID must be set
// by the caller.
func (db *DB) CreateTag(ctx context.Context, t *model.Tag) error {
	t.ID = xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO tags (id, name, color, user_id) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Color, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating tag: %w", err)
	}
	return nil
}

// DeleteTag removes the tag row. Its memberships go with it via the
// ON DELETE CASCADE on snippet_tags.
func (db *DB) DeleteTag(ctx context.Context, id string) error {
	clause, ownerArgs := ownerClause(ctx, "user_id")
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM tags WHERE id = ?`+clause,
		append([]any{id}, ownerArgs...)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting tag %s: %w", id, err)
	}
	return checkAffected(result, "tag", id)
}

// ListMemberships returns all join rows whose snippet id is in snippetIDs.
// An empty id set short-circuits to an empty result without a query.
func (db *DB) ListMemberships(ctx context.Context, snippetIDs []string) ([]model.SnippetTag, error) {
	if len(snippetIDs) == 0 {
		return []model.SnippetTag{}, nil
	}

	args := make([]any, 0, len(snippetIDs)+1)
	for _, id := range snippetIDs {
		args = append(args, id)
	}
	clause, ownerArgs := ownerClause(ctx, "s.user_id")
	args = append(args, ownerArgs...)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT st.snippet_id, st.tag_id
		 FROM snippet_tags st
		 JOIN snippets s ON s.id = st.snippet_id
		 WHERE st.snippet_id IN (`+placeholders(len(snippetIDs))+`)`+clause,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memberships: %w", err)
	}
	defer rows.Close()

	memberships := []model.SnippetTag{}
	for rows.Next() {
		var m model.SnippetTag
		if err := rows.Scan(&m.SnippetID, &m.TagID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership row: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating memberships: %w", err)
	}

	return memberships, nil
}

// snippetVisible reports NotFound when the snippet does not exist or the
// owner scope hides it. Membership writes go through it so a foreign
// snippet behaves exactly like a missing one.
func (db *DB) snippetVisible(ctx context.Context, snippetID string) error {
	clause, args := ownerClause(ctx, "user_id")
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM snippets WHERE id = ?`+clause,
		append([]any{snippetID}, args...)...,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound("snippet", snippetID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: checking snippet %s: %w", snippetID, err)
	}
	return nil
}

// DeleteMemberships clears every membership for one snippet. Deleting from
// a snippet that has none is a no-op success; a snippet the owner scope
// cannot see is NotFound, and its rows are never touched.
func (db *DB) DeleteMemberships(ctx context.Context, snippetID string) error {
	if err := db.snippetVisible(ctx, snippetID); err != nil {
		return err
	}

	clause, ownerArgs := ownerClause(ctx, "user_id")
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippet_tags
		 WHERE snippet_id IN (SELECT id FROM snippets WHERE id = ?`+clause+`)`,
		append([]any{snippetID}, ownerArgs...)...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting memberships for snippet %s: %w", snippetID, err)
	}
	return nil
}

// InsertMemberships links a snippet to each tag id. The insert selects from
// snippets and tags under the owner scope, so a membership can only join a
// snippet and a tag the owner can see — a row the scope hides behaves
// exactly like a missing one and the whole call fails.
func (db *DB) InsertMemberships(ctx context.Context, snippetID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	if err := db.snippetVisible(ctx, snippetID); err != nil {
		return err
	}

	snippetClause, snippetArgs := ownerClause(ctx, "s.user_id")
	tagClause, tagArgs := ownerClause(ctx, "t.user_id")
	for _, tagID := range tagIDs {
		args := append([]any{snippetID, tagID}, snippetArgs...)
		args = append(args, tagArgs...)
		result, err := db.conn.ExecContext(ctx,
			`INSERT INTO snippet_tags (snippet_id, tag_id)
			 SELECT s.id, t.id FROM snippets s, tags t
			 WHERE s.id = ? AND t.id = ?`+snippetClause+tagClause,
			args...,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting membership (%s, %s): %w", snippetID, tagID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if affected == 0 {
			return apperror.NotFound("tag", tagID)
		}
	}
	return nil
}

func collectTags(rows *sql.Rows) ([]model.Tag, error) {
	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.UserID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

// placeholders returns n comma-separated "?" marks for an IN clause.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
