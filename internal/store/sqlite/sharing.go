package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
)

// ShareRecipeCascade creates a fork of a recipe in another community
// atomically: the fork row, its ingredient copies, its resolved tag rows
// and links, the analytics increments along the whole ancestor chain, and
// the activity entry on the source.
func (s *Store) ShareRecipeCascade(ctx context.Context, params store.ShareRecipeParams) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRecipe(ctx, tx, params.Fork); err != nil {
			return err
		}
		if err := replaceIngredients(ctx, tx, params.Fork.ID, params.Ingredients); err != nil {
			return err
		}

		for _, tag := range params.CreateTags {
			if err := insertTag(ctx, tx, tag); err != nil {
				return err
			}
		}
		for _, tagID := range params.AttachTagIDs {
			if err := attachTag(ctx, tx, params.Fork.ID, tagID); err != nil {
				return err
			}
		}

		for _, recipeID := range params.AncestorIDs {
			if err := bumpAnalytics(ctx, tx, recipeID); err != nil {
				return err
			}
		}

		if params.Activity != nil {
			return insertActivity(ctx, tx, params.Activity)
		}
		return nil
	})
}

// bumpAnalytics increments shares and forks on a recipe's analytics row,
// creating the row lazily on first share.
func bumpAnalytics(ctx context.Context, tx *sql.Tx, recipeID string) error {
	now := formatTime(time.Now())
	_, err := tx.ExecContext(ctx, `
		INSERT INTO recipe_analytics (recipe_id, shares, forks, updated_at)
		VALUES (?, 1, 1, ?)
		ON CONFLICT(recipe_id) DO UPDATE SET
			shares = shares + 1,
			forks = forks + 1,
			updated_at = excluded.updated_at`,
		recipeID, now)
	return err
}

// GetRecipeAnalytics retrieves a recipe's analytics counters. A recipe
// that was never shared reports zero counters rather than not-found.
func (s *Store) GetRecipeAnalytics(ctx context.Context, recipeID string) (*domain.RecipeAnalytics, error) {
	var a domain.RecipeAnalytics
	var updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT recipe_id, shares, forks, updated_at
		FROM recipe_analytics WHERE recipe_id = ?`, recipeID).
		Scan(&a.RecipeID, &a.Shares, &a.Forks, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.RecipeAnalytics{RecipeID: recipeID}, nil
	}
	if err != nil {
		return nil, err
	}

	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListRecipeActivity returns a recipe's activity entries, newest first.
func (s *Store) ListRecipeActivity(ctx context.Context, recipeID string) ([]*domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipe_id, actor_id, reason, detail, created_at
		FROM activities WHERE recipe_id = ?
		ORDER BY created_at DESC`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*domain.Activity
	for rows.Next() {
		var a domain.Activity
		var (
			reason    string
			detail    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.RecipeID, &a.ActorID, &reason, &detail, &createdAt); err != nil {
			return nil, err
		}
		a.Reason = domain.ActivityReason(reason)
		if detail.Valid {
			a.Detail = detail.String
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}
