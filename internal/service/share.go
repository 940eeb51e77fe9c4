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
	"github.com/simmerapp/simmer-server/internal/search"
	"github.com/simmerapp/simmer-server/internal/store"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// ShareService forks community recipes into other communities and credits
// the whole ancestor chain's analytics.
type ShareService struct {
	store     store.Store
	index     *search.Index
	validator *validation.Validator
	logger    *slog.Logger
}

// NewShareService creates a new share service.
func NewShareService(store store.Store, index *search.Index, validator *validation.Validator, logger *slog.Logger) *ShareService {
	return &ShareService{
		store:     store,
		index:     index,
		validator: validator,
		logger:    logger,
	}
}

// ShareRequest forks a recipe into another community.
type ShareRequest struct {
	TargetCommunityID string `json:"target_community_id" validate:"required"`
}

// Share forks a community recipe into another community. The actor must be
// a member of both communities and must be the source recipe's creator or a
// moderator of the source community. Tags are copied by value and re-resolved
// against the target community; analytics counters are incremented on every
// recipe along the origin chain, source included.
func (s *ShareService) Share(ctx context.Context, actorID, recipeID string, req ShareRequest) (*domain.Recipe, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	source, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if source.IsPersonal() {
		return nil, domainerrors.Validation("personal recipes cannot be shared")
	}
	if source.CommunityID == req.TargetCommunityID {
		return nil, domainerrors.Validation("recipe is already in that community")
	}

	if _, err := s.store.GetCommunity(ctx, req.TargetCommunityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("target community not found")
		}
		return nil, fmt.Errorf("get target community: %w", err)
	}

	sourceMembership, err := s.store.GetMembership(ctx, source.CommunityID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of the source community")
		}
		return nil, fmt.Errorf("get source membership: %w", err)
	}
	if _, err := s.store.GetMembership(ctx, req.TargetCommunityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of the target community")
		}
		return nil, fmt.Errorf("get target membership: %w", err)
	}
	if source.CreatorID != actorID && !sourceMembership.IsModerator() {
		return nil, domainerrors.Forbidden("sharing requires being the creator or a source moderator")
	}

	forkID, err := id.Generate("rcp")
	if err != nil {
		return nil, fmt.Errorf("generate fork ID: %w", err)
	}
	fork := &domain.Recipe{
		Title:                 source.Title,
		Steps:                 source.Steps,
		Servings:              source.Servings,
		PrepMinutes:           source.PrepMinutes,
		CookMinutes:           source.CookMinutes,
		RestMinutes:           source.RestMinutes,
		CreatorID:             actorID,
		CommunityID:           req.TargetCommunityID,
		OriginRecipeID:        source.ID,
		SharedFromCommunityID: source.CommunityID,
	}
	fork.ID = forkID
	fork.InitTimestamps()

	ingredients, err := s.store.GetRecipeIngredients(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("get source ingredients: %w", err)
	}

	createTags, attachTagIDs, err := s.copyTags(ctx, actorID, source, fork)
	if err != nil {
		return nil, err
	}

	ancestorIDs, err := domain.AncestorChain(source, func(ancestorID string) (*domain.Recipe, error) {
		r, err := s.store.GetRecipe(ctx, ancestorID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("walk ancestor chain: %w", err)
	}

	activityID, err := id.Generate("act")
	if err != nil {
		return nil, fmt.Errorf("generate activity ID: %w", err)
	}

	err = s.store.ShareRecipeCascade(ctx, store.ShareRecipeParams{
		Fork:         fork,
		Ingredients:  ingredients,
		CreateTags:   createTags,
		AttachTagIDs: attachTagIDs,
		AncestorIDs:  ancestorIDs,
		Activity: &domain.Activity{
			ID:        activityID,
			RecipeID:  source.ID,
			ActorID:   actorID,
			Reason:    domain.ReasonRecipeShared,
			Detail:    fork.ID,
			CreatedAt: time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("share recipe: %w", err)
	}

	if s.index != nil {
		if err := s.index.IndexRecipe(fork, ingredients); err != nil {
			s.logger.Warn("failed to index forked recipe", "recipe_id", fork.ID, "error", err)
		}
	}

	s.logger.Info("recipe shared",
		"source_id", source.ID,
		"fork_id", fork.ID,
		"target_community_id", req.TargetCommunityID,
		"ancestors_credited", len(ancestorIDs))
	return fork, nil
}

// copyTags re-resolves the source recipe's tags against the fork's
// community. Global approved tags carry over as-is; community tags become
// community-scoped rows in the target, pending moderation there.
func (s *ShareService) copyTags(ctx context.Context, actorID string, source, fork *domain.Recipe) ([]*domain.Tag, []string, error) {
	sourceTags, err := s.store.ListRecipeTags(ctx, source.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list source tags: %w", err)
	}

	var createTags []*domain.Tag
	attachTagIDs := make([]string, 0, len(sourceTags))
	seen := make(map[string]bool, len(sourceTags))

	for _, sourceTag := range sourceTags {
		tag, create, err := resolveTag(ctx, s.store, actorID, fork, sourceTag.Name)
		if err != nil {
			return nil, nil, err
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		if create {
			createTags = append(createTags, tag)
		}
		attachTagIDs = append(attachTagIDs, tag.ID)
	}
	return createTags, attachTagIDs, nil
}

func (s *ShareService) getLiveRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if recipe.IsDeleted() {
		return nil, domainerrors.Gone("recipe was deleted")
	}
	return recipe, nil
}
