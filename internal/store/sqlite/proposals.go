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

const proposalColumns = `id, recipe_id, proposer_id, title, steps, servings, prep_minutes, cook_minutes,
	rest_minutes, ingredients, status, decided_at, created_at, updated_at, deleted_at`

// scanProposal scans a row into a domain.Proposal.
func scanProposal(scanner interface{ Scan(dest ...any) error }) (*domain.Proposal, error) {
	var p domain.Proposal
	var (
		steps       string
		ingredients sql.NullString
		status      string
		decidedAt   sql.NullString
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
	)

	err := scanner.Scan(
		&p.ID,
		&p.RecipeID,
		&p.ProposerID,
		&p.Content.Title,
		&steps,
		&p.Content.Servings,
		&p.Content.PrepMinutes,
		&p.Content.CookMinutes,
		&p.Content.RestMinutes,
		&ingredients,
		&status,
		&decidedAt,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(steps, &p.Content.Steps); err != nil {
		return nil, err
	}
	if ingredients.Valid {
		// A stored ingredient list, even an empty one, means "replace".
		p.Content.Ingredients = []domain.RecipeIngredient{}
		if err := unmarshalJSON(ingredients.String, &p.Content.Ingredients); err != nil {
			return nil, err
		}
	}
	p.Status = domain.ProposalStatus(status)
	if p.DecidedAt, err = parseNullableTime(decidedAt); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if p.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &p, nil
}

// insertActivity inserts an activity log entry.
func insertActivity(ctx context.Context, ex execer, a *domain.Activity) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO activities (id, recipe_id, actor_id, reason, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.RecipeID, a.ActorID, string(a.Reason), nullString(a.Detail), formatTime(a.CreatedAt))
	return err
}

// decideProposal flips a proposal from PENDING to a terminal status inside
// a transaction. Returns store.ErrConflict if the proposal was already
// decided, so a losing racer observes a duplicate-decision error.
func decideProposal(ctx context.Context, ex execer, proposalID string, status domain.ProposalStatus, decidedAt time.Time) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE proposals SET status = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(status),
		formatTime(decidedAt),
		formatTime(decidedAt),
		proposalID,
		string(domain.ProposalPending),
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
	return nil
}

// CreateProposal inserts a new proposal.
func (s *Store) CreateProposal(ctx context.Context, p *domain.Proposal) error {
	steps, err := marshalJSON(p.Content.Steps)
	if err != nil {
		return err
	}

	var ingredients sql.NullString
	if p.Content.Ingredients != nil {
		encoded, err := marshalJSON(p.Content.Ingredients)
		if err != nil {
			return err
		}
		ingredients = sql.NullString{String: encoded, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO proposals (id, recipe_id, proposer_id, title, steps, servings, prep_minutes,
			cook_minutes, rest_minutes, ingredients, status, decided_at, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.RecipeID,
		p.ProposerID,
		p.Content.Title,
		steps,
		p.Content.Servings,
		p.Content.PrepMinutes,
		p.Content.CookMinutes,
		p.Content.RestMinutes,
		ingredients,
		string(p.Status),
		nullTimeString(p.DecidedAt),
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		nullTimeString(p.DeletedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// GetProposal retrieves a proposal by ID.
func (s *Store) GetProposal(ctx context.Context, proposalID string) (*domain.Proposal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, proposalID)

	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProposalsForRecipe returns all proposals against a recipe, newest first.
func (s *Store) ListProposalsForRecipe(ctx context.Context, recipeID string) ([]*domain.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE recipe_id = ? ORDER BY created_at DESC`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectProposals(rows)
}

// ListPendingProposalsForRecipes returns every PENDING proposal targeting
// any of the given recipes.
func (s *Store) ListPendingProposalsForRecipes(ctx context.Context, recipeIDs []string) ([]*domain.Proposal, error) {
	if len(recipeIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(recipeIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(recipeIDs)+1)
	for _, id := range recipeIDs {
		args = append(args, id)
	}
	args = append(args, string(domain.ProposalPending))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE recipe_id IN (`+placeholders+`) AND status = ?
		ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectProposals(rows)
}

func collectProposals(rows *sql.Rows) ([]*domain.Proposal, error) {
	var proposals []*domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// AcceptProposalCascade applies an accept decision atomically: the status
// flip, the merged content written to the target and every linked copy,
// ingredient replacement when the proposal carries a list, and the activity
// entry. Either the whole batch applies or none of it does.
func (s *Store) AcceptProposalCascade(ctx context.Context, params store.AcceptProposalParams) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		decidedAt := time.Now()
		if params.Proposal.DecidedAt != nil {
			decidedAt = *params.Proposal.DecidedAt
		}

		if err := decideProposal(ctx, tx, params.Proposal.ID, domain.ProposalAccepted, decidedAt); err != nil {
			return err
		}

		for _, recipeID := range params.TargetIDs {
			if err := updateRecipeContent(ctx, tx, recipeID, params.Content); err != nil {
				return err
			}
			if err := replaceIngredients(ctx, tx, recipeID, params.Content.Ingredients); err != nil {
				return err
			}
		}

		if params.Activity != nil {
			return insertActivity(ctx, tx, params.Activity)
		}
		return nil
	})
}

// RejectProposalWithVariant applies a reject decision atomically: the
// status flip plus the forged variant recipe, its ingredients, and the
// activity entry recording the forge.
func (s *Store) RejectProposalWithVariant(ctx context.Context, params store.RejectProposalParams) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		decidedAt := time.Now()
		if params.Proposal.DecidedAt != nil {
			decidedAt = *params.Proposal.DecidedAt
		}

		if err := decideProposal(ctx, tx, params.Proposal.ID, domain.ProposalRejected, decidedAt); err != nil {
			return err
		}
		return forgeVariant(ctx, tx, params.Forge)
	})
}

// forgeVariant inserts a variant recipe with its ingredients and activity
// entry inside an existing transaction.
func forgeVariant(ctx context.Context, tx *sql.Tx, forge store.VariantForge) error {
	if err := insertRecipe(ctx, tx, forge.Variant); err != nil {
		return err
	}
	if err := replaceIngredients(ctx, tx, forge.Variant.ID, forge.Ingredients); err != nil {
		return err
	}
	if forge.Activity != nil {
		return insertActivity(ctx, tx, forge.Activity)
	}
	return nil
}
