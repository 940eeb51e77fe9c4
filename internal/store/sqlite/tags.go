package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
)

const tagColumns = `id, name, slug, scope, status, community_id, created_by, created_at, updated_at, deleted_at`

// scanTag scans a row into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag
	var (
		scope       string
		status      string
		communityID sql.NullString
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
	)

	err := scanner.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&scope,
		&status,
		&communityID,
		&t.CreatedBy,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Scope = domain.TagScope(scope)
	t.Status = domain.TagStatus(status)
	if communityID.Valid {
		t.CommunityID = communityID.String
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if t.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &t, nil
}

// insertTag inserts a tag row.
// Returns store.ErrAlreadyExists when the slug collides within its scope.
func insertTag(ctx context.Context, ex execer, t *domain.Tag) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO tags (id, name, slug, scope, status, community_id, created_by, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.Slug,
		string(t.Scope),
		string(t.Status),
		nullString(t.CommunityID),
		t.CreatedBy,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
		nullTimeString(t.DeletedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// attachTag links a tag to a recipe; duplicate links are a no-op.
func attachTag(ctx context.Context, ex execer, recipeID, tagID string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT OR IGNORE INTO recipe_tags (recipe_id, tag_id, added_at)
		VALUES (?, ?, ?)`, recipeID, tagID, formatTime(time.Now()))
	return err
}

// FindTagCandidates gathers the existing tag rows a name resolution
// consults: the GLOBAL-APPROVED tag for the slug, and the APPROVED and
// PENDING community tags scoped to the given community.
func (s *Store) FindTagCandidates(ctx context.Context, slug, communityID string) (domain.TagCandidates, error) {
	var candidates domain.TagCandidates

	row := s.db.QueryRowContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE slug = ? AND scope = ? AND status = ? AND deleted_at IS NULL`,
		slug, string(domain.TagScopeGlobal), string(domain.TagApproved))
	tag, err := scanTag(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return candidates, err
	}
	candidates.GlobalApproved = tag

	if communityID == "" {
		return candidates, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE slug = ? AND scope = ? AND community_id = ? AND deleted_at IS NULL`,
		slug, string(domain.TagScopeCommunity), communityID)
	if err != nil {
		return candidates, err
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return candidates, err
		}
		switch t.Status {
		case domain.TagApproved:
			candidates.CommunityApproved = t
		case domain.TagPending:
			candidates.CommunityPending = t
		}
	}
	return candidates, rows.Err()
}

// GetTag retrieves a tag by ID.
func (s *Store) GetTag(ctx context.Context, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND deleted_at IS NULL`, tagID)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns tags matching the filter, ordered by name.
func (s *Store) ListTags(ctx context.Context, filter store.TagFilter) ([]*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE deleted_at IS NULL`
	var args []any

	if filter.Scope != "" {
		query += ` AND scope = ?`
		args = append(args, string(filter.Scope))
	}
	if filter.CommunityID != "" {
		query += ` AND community_id = ?`
		args = append(args, filter.CommunityID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// AttachRecipeTag links a tag to a recipe, creating the tag row first when
// createTag is set, in one transaction.
func (s *Store) AttachRecipeTag(ctx context.Context, recipeID string, tag *domain.Tag, createTag bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if createTag {
			if err := insertTag(ctx, tx, tag); err != nil {
				return err
			}
		}
		return attachTag(ctx, tx, recipeID, tag.ID)
	})
}

// ListRecipeTags returns the tags attached to a recipe.
func (s *Store) ListRecipeTags(ctx context.Context, recipeID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.scope, t.status, t.community_id, t.created_by, t.created_at, t.updated_at, t.deleted_at
		FROM tags t
		JOIN recipe_tags rt ON rt.tag_id = t.id
		WHERE rt.recipe_id = ? AND t.deleted_at IS NULL
		ORDER BY rt.added_at ASC`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CountRecipeTags returns the number of tags attached to a recipe.
func (s *Store) CountRecipeTags(ctx context.Context, recipeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipe_tags WHERE recipe_id = ?`, recipeID).Scan(&count)
	return count, err
}

// DecideTagCascade applies a moderator decision on a pending community tag
// atomically. Approval flips the tag to APPROVED; rejection hard-deletes
// the tag and its recipe links. Every suggestion waiting on the tag in
// PENDING_MODERATOR moves to the matching terminal status.
//
// Returns store.ErrConflict if the tag was already decided.
func (s *Store) DecideTagCascade(ctx context.Context, params store.DecideTagParams) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		decidedAt := formatTime(params.DecidedAt)

		if params.Approve {
			res, err := tx.ExecContext(ctx, `
				UPDATE tags SET status = ?, updated_at = ?
				WHERE id = ? AND status = ? AND deleted_at IS NULL`,
				string(domain.TagApproved), decidedAt,
				params.TagID, string(domain.TagPending))
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return store.ErrConflict
			}
		} else {
			if err := hardDeleteTag(ctx, tx, params.TagID, string(domain.TagPending)); err != nil {
				return err
			}
		}

		suggestionStatus := domain.SuggestionRejected
		if params.Approve {
			suggestionStatus = domain.SuggestionApproved
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE tag_suggestions SET status = ?, decided_at = ?, updated_at = ?
			WHERE tag_id = ? AND status = ?`,
			string(suggestionStatus), decidedAt, decidedAt,
			params.TagID, string(domain.SuggestionPendingModerator))
		return err
	})
}

// DeleteTagCascade hard-deletes a tag and its recipe links.
func (s *Store) DeleteTagCascade(ctx context.Context, tagID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return hardDeleteTag(ctx, tx, tagID, "")
	})
}

// hardDeleteTag removes a tag row and its links. When requireStatus is
// non-empty the delete only applies to a tag in that status, and a
// mismatch reports store.ErrConflict.
func hardDeleteTag(ctx context.Context, tx *sql.Tx, tagID, requireStatus string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recipe_tags WHERE tag_id = ?`, tagID); err != nil {
		return err
	}

	query := `DELETE FROM tags WHERE id = ?`
	args := []any{tagID}
	if requireStatus != "" {
		query += ` AND status = ?`
		args = append(args, requireStatus)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if requireStatus != "" {
			return store.ErrConflict
		}
		return store.ErrNotFound
	}
	return nil
}
