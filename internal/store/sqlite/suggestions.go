package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
)

const suggestionColumns = `id, recipe_id, suggester_id, tag_name, tag_slug, status, tag_id,
	decided_at, created_at, updated_at, deleted_at`

// scanSuggestion scans a row into a domain.TagSuggestion.
func scanSuggestion(scanner interface{ Scan(dest ...any) error }) (*domain.TagSuggestion, error) {
	var sg domain.TagSuggestion
	var (
		status    string
		tagID     sql.NullString
		decidedAt sql.NullString
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)

	err := scanner.Scan(
		&sg.ID,
		&sg.RecipeID,
		&sg.SuggesterID,
		&sg.TagName,
		&sg.TagSlug,
		&status,
		&tagID,
		&decidedAt,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	sg.Status = domain.SuggestionStatus(status)
	if tagID.Valid {
		sg.TagID = tagID.String
	}
	if sg.DecidedAt, err = parseNullableTime(decidedAt); err != nil {
		return nil, err
	}
	if sg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if sg.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &sg, nil
}

// CreateSuggestion inserts a tag suggestion.
func (s *Store) CreateSuggestion(ctx context.Context, sg *domain.TagSuggestion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tag_suggestions (id, recipe_id, suggester_id, tag_name, tag_slug, status, tag_id,
			decided_at, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sg.ID,
		sg.RecipeID,
		sg.SuggesterID,
		sg.TagName,
		sg.TagSlug,
		string(sg.Status),
		nullString(sg.TagID),
		nullTimeString(sg.DecidedAt),
		formatTime(sg.CreatedAt),
		formatTime(sg.UpdatedAt),
		nullTimeString(sg.DeletedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// GetSuggestion retrieves a suggestion by ID.
func (s *Store) GetSuggestion(ctx context.Context, suggestionID string) (*domain.TagSuggestion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM tag_suggestions WHERE id = ?`, suggestionID)

	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sg, nil
}

// GetActiveSuggestion retrieves the non-terminal suggestion for a
// (recipe, tag slug) pair, if one exists. At most one can be active.
func (s *Store) GetActiveSuggestion(ctx context.Context, recipeID, tagSlug string) (*domain.TagSuggestion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+suggestionColumns+` FROM tag_suggestions
		WHERE recipe_id = ? AND tag_slug = ? AND status IN (?, ?)`,
		recipeID, tagSlug,
		string(domain.SuggestionPendingOwner), string(domain.SuggestionPendingModerator))

	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sg, nil
}

// ListSuggestionsForRecipe returns all suggestions against a recipe,
// newest first.
func (s *Store) ListSuggestionsForRecipe(ctx context.Context, recipeID string) ([]*domain.TagSuggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+` FROM tag_suggestions
		WHERE recipe_id = ? ORDER BY created_at DESC`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []*domain.TagSuggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, sg)
	}
	return suggestions, rows.Err()
}

// DecideSuggestionCascade applies an owner decision atomically: the status
// transition out of PENDING_OWNER, the tag row creation when resolution
// produced a new tag, and the recipe link when the decision attaches one.
//
// Returns store.ErrConflict if the suggestion already left PENDING_OWNER.
func (s *Store) DecideSuggestionCascade(ctx context.Context, params store.DecideSuggestionParams) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		sg := params.Suggestion

		res, err := tx.ExecContext(ctx, `
			UPDATE tag_suggestions SET status = ?, tag_id = ?, decided_at = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(sg.Status),
			nullString(sg.TagID),
			nullTimeString(sg.DecidedAt),
			formatTime(sg.UpdatedAt),
			sg.ID,
			string(domain.SuggestionPendingOwner),
		)
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

		if params.CreateTag != nil {
			if err := insertTag(ctx, tx, params.CreateTag); err != nil {
				return err
			}
		}
		if params.AttachTagID != "" {
			return attachTag(ctx, tx, params.RecipeID, params.AttachTagID)
		}
		return nil
	})
}
