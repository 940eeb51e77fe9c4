package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/id"
	"github.com/simmerapp/simmer-server/internal/store"
	"github.com/simmerapp/simmer-server/internal/util"
)

const recipeColumns = `id, title, steps, servings, prep_minutes, cook_minutes, rest_minutes,
	creator_id, community_id, origin_recipe_id, is_variant, shared_from_community_id,
	created_at, updated_at, deleted_at`

// scanRecipe scans a row into a domain.Recipe.
func scanRecipe(scanner interface{ Scan(dest ...any) error }) (*domain.Recipe, error) {
	var r domain.Recipe
	var (
		steps          string
		communityID    sql.NullString
		originRecipeID sql.NullString
		isVariant      int
		sharedFrom     sql.NullString
		createdAt      string
		updatedAt      string
		deletedAt      sql.NullString
	)

	err := scanner.Scan(
		&r.ID,
		&r.Title,
		&steps,
		&r.Servings,
		&r.PrepMinutes,
		&r.CookMinutes,
		&r.RestMinutes,
		&r.CreatorID,
		&communityID,
		&originRecipeID,
		&isVariant,
		&sharedFrom,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(steps, &r.Steps); err != nil {
		return nil, err
	}
	if communityID.Valid {
		r.CommunityID = communityID.String
	}
	if originRecipeID.Valid {
		r.OriginRecipeID = originRecipeID.String
	}
	r.IsVariant = isVariant != 0
	if sharedFrom.Valid {
		r.SharedFromCommunityID = sharedFrom.String
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

// execer covers *sql.DB and *sql.Tx for helpers shared by both.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertRecipe inserts a recipe row.
func insertRecipe(ctx context.Context, ex execer, r *domain.Recipe) error {
	steps, err := marshalJSON(r.Steps)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO recipes (id, title, steps, servings, prep_minutes, cook_minutes, rest_minutes,
			creator_id, community_id, origin_recipe_id, is_variant, shared_from_community_id,
			created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.Title,
		steps,
		r.Servings,
		r.PrepMinutes,
		r.CookMinutes,
		r.RestMinutes,
		r.CreatorID,
		nullString(r.CommunityID),
		nullString(r.OriginRecipeID),
		boolToInt(r.IsVariant),
		nullString(r.SharedFromCommunityID),
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
		nullTimeString(r.DeletedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// findOrCreateIngredient resolves an ingredient catalog row by slug,
// creating it if missing. Safe against concurrent creation via the slug
// unique index.
func findOrCreateIngredient(ctx context.Context, ex execer, name string) (string, error) {
	slug := util.NormalizeSlug(name)

	var ingredientID string
	err := ex.QueryRowContext(ctx,
		`SELECT id FROM ingredients WHERE slug = ?`, slug).Scan(&ingredientID)
	if err == nil {
		return ingredientID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	ingredientID, err = id.Generate("ing")
	if err != nil {
		return "", err
	}
	now := formatTime(time.Now())
	_, err = ex.ExecContext(ctx, `
		INSERT INTO ingredients (id, name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		ingredientID, name, slug, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			// Lost the race; fetch the winner.
			if scanErr := ex.QueryRowContext(ctx,
				`SELECT id FROM ingredients WHERE slug = ?`, slug).Scan(&ingredientID); scanErr == nil {
				return ingredientID, nil
			}
		}
		return "", err
	}
	return ingredientID, nil
}

// replaceIngredients swaps a recipe's ingredient associations wholesale.
// A nil list leaves the associations untouched.
func replaceIngredients(ctx context.Context, ex execer, recipeID string, ingredients []domain.RecipeIngredient) error {
	if ingredients == nil {
		return nil
	}

	if _, err := ex.ExecContext(ctx,
		`DELETE FROM recipe_ingredients WHERE recipe_id = ?`, recipeID); err != nil {
		return err
	}

	for i, ing := range ingredients {
		ingredientID := ing.IngredientID
		if ingredientID == "" {
			var err error
			ingredientID, err = findOrCreateIngredient(ctx, ex, ing.Name)
			if err != nil {
				return err
			}
		}
		position := ing.Position
		if position == 0 {
			position = i
		}
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity, unit, position)
			VALUES (?, ?, ?, ?, ?)`,
			recipeID, ingredientID, ing.Quantity, nullString(ing.Unit), position); err != nil {
			return err
		}
	}
	return nil
}

// updateRecipeContent writes content fields onto a recipe row and bumps
// updated_at.
func updateRecipeContent(ctx context.Context, ex execer, recipeID string, content domain.RecipeContent) error {
	steps, err := marshalJSON(content.Steps)
	if err != nil {
		return err
	}

	res, err := ex.ExecContext(ctx, `
		UPDATE recipes SET title = ?, steps = ?, servings = ?, prep_minutes = ?, cook_minutes = ?, rest_minutes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		content.Title,
		steps,
		content.Servings,
		content.PrepMinutes,
		content.CookMinutes,
		content.RestMinutes,
		formatTime(time.Now()),
		recipeID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateRecipe inserts a recipe and its ingredient associations.
func (s *Store) CreateRecipe(ctx context.Context, recipe *domain.Recipe, ingredients []domain.RecipeIngredient) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRecipe(ctx, tx, recipe); err != nil {
			return err
		}
		return replaceIngredients(ctx, tx, recipe.ID, ingredients)
	})
}

// CreateRecipePair inserts the personal and community copies of a recipe
// authored inside a community, sharing one ingredient list, in one
// transaction.
func (s *Store) CreateRecipePair(ctx context.Context, personal, community *domain.Recipe, ingredients []domain.RecipeIngredient) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRecipe(ctx, tx, personal); err != nil {
			return err
		}
		if err := insertRecipe(ctx, tx, community); err != nil {
			return err
		}
		if err := replaceIngredients(ctx, tx, personal.ID, ingredients); err != nil {
			return err
		}
		return replaceIngredients(ctx, tx, community.ID, ingredients)
	})
}

// GetRecipe retrieves a recipe by ID, including soft-deleted rows so
// callers can distinguish "gone" from "never existed".
func (s *Store) GetRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, recipeID)

	recipe, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

// UpdateRecipe writes a recipe's content fields and, when ingredients is
// non-nil, replaces its ingredient associations.
func (s *Store) UpdateRecipe(ctx context.Context, recipe *domain.Recipe, ingredients []domain.RecipeIngredient) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateRecipeContent(ctx, tx, recipe.ID, domain.ContentOf(recipe)); err != nil {
			return err
		}
		return replaceIngredients(ctx, tx, recipe.ID, ingredients)
	})
}

// SoftDeleteRecipe tombstones a recipe.
func (s *Store) SoftDeleteRecipe(ctx context.Context, recipeID string) error {
	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE recipes SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, recipeID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetRecipeIngredients returns a recipe's ingredient associations ordered
// by position.
func (s *Store) GetRecipeIngredients(ctx context.Context, recipeID string) ([]domain.RecipeIngredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.ingredient_id, i.name, ri.quantity, ri.unit, ri.position
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ?
		ORDER BY ri.position ASC`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ingredients []domain.RecipeIngredient
	for rows.Next() {
		var ing domain.RecipeIngredient
		var unit sql.NullString
		if err := rows.Scan(&ing.IngredientID, &ing.Name, &ing.Quantity, &unit, &ing.Position); err != nil {
			return nil, err
		}
		if unit.Valid {
			ing.Unit = unit.String
		}
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

// listRecipes runs a paginated recipe query with a shared scan loop.
func (s *Store) listRecipes(ctx context.Context, countQuery, listQuery string, page store.PaginationParams, args ...any) (*store.PaginatedResult[*domain.Recipe], error) {
	page.Validate()

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	listArgs := append(append([]any{}, args...), page.Limit, page.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipes := make([]*domain.Recipe, 0, page.Limit)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &store.PaginatedResult[*domain.Recipe]{
		Items:   recipes,
		Total:   total,
		HasMore: page.Offset+len(recipes) < total,
	}, nil
}

// ListPersonalRecipes returns a user's personal copies, newest first.
func (s *Store) ListPersonalRecipes(ctx context.Context, userID string, page store.PaginationParams) (*store.PaginatedResult[*domain.Recipe], error) {
	return s.listRecipes(ctx,
		`SELECT COUNT(*) FROM recipes WHERE creator_id = ? AND community_id IS NULL AND deleted_at IS NULL`,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE creator_id = ? AND community_id IS NULL AND deleted_at IS NULL
		 ORDER BY MAX(created_at, updated_at) DESC LIMIT ? OFFSET ?`,
		page, userID)
}

// ListCommunityRecipes returns a community's recipes, newest first.
func (s *Store) ListCommunityRecipes(ctx context.Context, communityID string, page store.PaginationParams) (*store.PaginatedResult[*domain.Recipe], error) {
	return s.listRecipes(ctx,
		`SELECT COUNT(*) FROM recipes WHERE community_id = ? AND deleted_at IS NULL`,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE community_id = ? AND deleted_at IS NULL
		 ORDER BY MAX(created_at, updated_at) DESC LIMIT ? OFFSET ?`,
		page, communityID)
}

// ListVariants returns the variants forged from a recipe, ordered by the
// most recent of created/updated time, descending.
func (s *Store) ListVariants(ctx context.Context, recipeID string, page store.PaginationParams) (*store.PaginatedResult[*domain.Recipe], error) {
	return s.listRecipes(ctx,
		`SELECT COUNT(*) FROM recipes WHERE origin_recipe_id = ? AND is_variant = 1 AND deleted_at IS NULL`,
		`SELECT `+recipeColumns+` FROM recipes
		 WHERE origin_recipe_id = ? AND is_variant = 1 AND deleted_at IS NULL
		 ORDER BY MAX(created_at, updated_at) DESC LIMIT ? OFFSET ?`,
		page, recipeID)
}

// ListCommunitySiblings returns the non-variant community copies sharing an
// origin, excluding one recipe (normally the cascade's own target).
func (s *Store) ListCommunitySiblings(ctx context.Context, originRecipeID, excludeRecipeID string) ([]*domain.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recipeColumns+` FROM recipes
		WHERE origin_recipe_id = ? AND id != ? AND community_id IS NOT NULL
		  AND is_variant = 0 AND deleted_at IS NULL`,
		originRecipeID, excludeRecipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var siblings []*domain.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		siblings = append(siblings, r)
	}
	return siblings, rows.Err()
}

// ListMemberRecipes returns the non-deleted community recipes owned by a
// user within one community.
func (s *Store) ListMemberRecipes(ctx context.Context, communityID, userID string) ([]*domain.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recipeColumns+` FROM recipes
		WHERE community_id = ? AND creator_id = ? AND deleted_at IS NULL`,
		communityID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []*domain.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}
