package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
	"github.com/simmerapp/simmer-server/internal/id"
	"github.com/simmerapp/simmer-server/internal/store"
	"github.com/simmerapp/simmer-server/internal/util"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// SuggestionService runs the tag suggestion lifecycle: members suggest tag
// names on others' recipes, owners decide, and owner-accepted names that
// resolve to an unmoderated community tag wait on the moderator's call.
type SuggestionService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSuggestionService creates a new suggestion service.
func NewSuggestionService(store store.Store, validator *validation.Validator, logger *slog.Logger) *SuggestionService {
	return &SuggestionService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateSuggestionRequest suggests a tag name for a recipe.
type CreateSuggestionRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

// Create files a tag suggestion. The suggester must be a member of the
// recipe's community and must not be the recipe's owner; at most one active
// suggestion exists per (recipe, name).
func (s *SuggestionService) Create(ctx context.Context, actorID, recipeID string, req CreateSuggestionRequest) (*domain.TagSuggestion, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	recipe, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.IsPersonal() {
		return nil, domainerrors.Validation("suggestions target community recipes only")
	}
	if recipe.CreatorID == actorID {
		return nil, domainerrors.Validation("recipe owners tag directly instead of suggesting")
	}
	if _, err := s.store.GetMembership(ctx, recipe.CommunityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	slug := util.NormalizeSlug(req.Name)
	if slug == "" {
		return nil, domainerrors.Validation("tag name has no usable characters")
	}

	if _, err := s.store.GetActiveSuggestion(ctx, recipeID, slug); err == nil {
		return nil, domainerrors.Conflict("a suggestion for that name is already open")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check active suggestion: %w", err)
	}

	suggestionID, err := id.Generate("sug")
	if err != nil {
		return nil, fmt.Errorf("generate suggestion ID: %w", err)
	}

	suggestion := &domain.TagSuggestion{
		RecipeID:    recipeID,
		SuggesterID: actorID,
		TagName:     req.Name,
		TagSlug:     slug,
		Status:      domain.SuggestionPendingOwner,
	}
	suggestion.ID = suggestionID
	suggestion.InitTimestamps()

	if err := s.store.CreateSuggestion(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("create suggestion: %w", err)
	}

	s.logger.Info("tag suggestion created", "suggestion_id", suggestionID, "recipe_id", recipeID)
	return suggestion, nil
}

// ListForRecipe returns a recipe's suggestions, newest first. Members only.
func (s *SuggestionService) ListForRecipe(ctx context.Context, actorID, recipeID string) ([]*domain.TagSuggestion, error) {
	recipe, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.IsCommunity() {
		if _, err := s.store.GetMembership(ctx, recipe.CommunityID, actorID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domainerrors.Forbidden("not a member of this community")
			}
			return nil, fmt.Errorf("get membership: %w", err)
		}
	} else if recipe.CreatorID != actorID {
		return nil, domainerrors.Forbidden("not your recipe")
	}

	suggestions, err := s.store.ListSuggestionsForRecipe(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return suggestions, nil
}

// Accept is the owner's approval of a suggestion. The name goes through
// staged tag resolution; when it lands on an unmoderated community tag the
// suggestion parks at PENDING_MODERATOR until the tag itself is decided.
func (s *SuggestionService) Accept(ctx context.Context, actorID, suggestionID string) (*domain.TagSuggestion, error) {
	suggestion, recipe, err := s.getDecidable(ctx, actorID, suggestionID)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountRecipeTags(ctx, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("count recipe tags: %w", err)
	}
	if count >= domain.MaxTagsPerRecipe {
		return nil, domainerrors.Validationf("a recipe carries at most %d tags", domain.MaxTagsPerRecipe)
	}

	tag, create, err := resolveTag(ctx, s.store, suggestion.SuggesterID, recipe, suggestion.TagName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	suggestion.TagID = tag.ID
	suggestion.Touch()
	if tag.IsApproved() {
		suggestion.Status = domain.SuggestionApproved
		suggestion.DecidedAt = &now
	} else {
		// The tag is still pending; the moderator's call on the tag will
		// cascade back onto this suggestion.
		suggestion.Status = domain.SuggestionPendingModerator
	}

	params := store.DecideSuggestionParams{
		Suggestion:  suggestion,
		AttachTagID: tag.ID,
		RecipeID:    recipe.ID,
	}
	if create {
		params.CreateTag = tag
	}

	if err := s.store.DecideSuggestionCascade(ctx, params); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domainerrors.Validation("suggestion already decided")
		}
		return nil, fmt.Errorf("accept suggestion: %w", err)
	}

	s.logger.Info("tag suggestion accepted",
		"suggestion_id", suggestion.ID,
		"status", suggestion.Status,
		"tag_id", tag.ID)
	return suggestion, nil
}

// Reject is the owner's refusal of a suggestion.
func (s *SuggestionService) Reject(ctx context.Context, actorID, suggestionID string) (*domain.TagSuggestion, error) {
	suggestion, _, err := s.getDecidable(ctx, actorID, suggestionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	suggestion.Status = domain.SuggestionRejected
	suggestion.DecidedAt = &now
	suggestion.Touch()

	err = s.store.DecideSuggestionCascade(ctx, store.DecideSuggestionParams{
		Suggestion: suggestion,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domainerrors.Validation("suggestion already decided")
		}
		return nil, fmt.Errorf("reject suggestion: %w", err)
	}

	s.logger.Info("tag suggestion rejected", "suggestion_id", suggestion.ID)
	return suggestion, nil
}

// getDecidable loads a suggestion still awaiting the owner's decision and
// checks the actor owns the target recipe. A suggestion whose recipe was
// deleted is auto-rejected on the spot and reported as undecidable.
func (s *SuggestionService) getDecidable(ctx context.Context, actorID, suggestionID string) (*domain.TagSuggestion, *domain.Recipe, error) {
	suggestion, err := s.store.GetSuggestion(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.NotFound("suggestion not found")
		}
		return nil, nil, fmt.Errorf("get suggestion: %w", err)
	}
	if suggestion.Status != domain.SuggestionPendingOwner {
		return nil, nil, domainerrors.Validation("suggestion already decided")
	}

	recipe, err := s.store.GetRecipe(ctx, suggestion.RecipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.NotFound("recipe not found")
		}
		return nil, nil, fmt.Errorf("get recipe: %w", err)
	}
	if recipe.CreatorID != actorID {
		return nil, nil, domainerrors.Forbidden("only the recipe owner decides suggestions")
	}
	if recipe.IsDeleted() {
		if err := s.autoReject(ctx, suggestion); err != nil {
			return nil, nil, err
		}
		return nil, nil, domainerrors.Validation("recipe was deleted")
	}

	return suggestion, recipe, nil
}

// autoReject settles a suggestion whose target recipe was found deleted at
// decision time, so it does not sit pending forever.
func (s *SuggestionService) autoReject(ctx context.Context, suggestion *domain.TagSuggestion) error {
	now := time.Now()
	suggestion.Status = domain.SuggestionRejected
	suggestion.DecidedAt = &now
	suggestion.Touch()

	err := s.store.DecideSuggestionCascade(ctx, store.DecideSuggestionParams{
		Suggestion: suggestion,
	})
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("auto-reject suggestion: %w", err)
	}

	s.logger.Info("tag suggestion auto-rejected",
		"suggestion_id", suggestion.ID,
		"recipe_id", suggestion.RecipeID)
	return nil
}

func (s *SuggestionService) getLiveRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if recipe.IsDeleted() {
		return nil, domainerrors.Validation("recipe was deleted")
	}
	return recipe, nil
}
