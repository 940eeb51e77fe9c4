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
	"github.com/simmerapp/simmer-server/internal/validation"
)

// ProposalService runs the proposal lifecycle: creation, acceptance with
// cascade, and rejection with a forged variant.
type ProposalService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProposalService creates a new proposal service.
func NewProposalService(store store.Store, validator *validation.Validator, logger *slog.Logger) *ProposalService {
	return &ProposalService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateProposalRequest proposes new content for a community recipe.
type CreateProposalRequest struct {
	Title       string            `json:"title"        validate:"required,min=1,max=200"`
	Steps       []string          `json:"steps"        validate:"required,min=1,dive,required"`
	Servings    int               `json:"servings"     validate:"required,gt=0"`
	PrepMinutes int               `json:"prep_minutes" validate:"gte=0"`
	CookMinutes int               `json:"cook_minutes" validate:"gte=0"`
	RestMinutes int               `json:"rest_minutes" validate:"gte=0"`
	Ingredients []IngredientInput `json:"ingredients,omitempty" validate:"omitempty,dive"`
}

// RejectProposalResult pairs the rejected proposal with the forged variant.
type RejectProposalResult struct {
	Proposal *domain.Proposal `json:"proposal"`
	Variant  *domain.Recipe   `json:"variant"`
}

// Create files a proposal against a community recipe. The proposer must be a
// member of the recipe's community and must not be its creator.
func (s *ProposalService) Create(ctx context.Context, actorID, recipeID string, req CreateProposalRequest) (*domain.Proposal, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	target, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if target.IsPersonal() {
		return nil, domainerrors.Validation("proposals target community recipes only")
	}
	if target.CreatorID == actorID {
		return nil, domainerrors.Validation("recipe creators edit directly instead of proposing")
	}
	if _, err := s.store.GetMembership(ctx, target.CommunityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	proposalID, err := id.Generate("prp")
	if err != nil {
		return nil, fmt.Errorf("generate proposal ID: %w", err)
	}

	proposal := &domain.Proposal{
		RecipeID:   recipeID,
		ProposerID: actorID,
		Content: domain.RecipeContent{
			Title:       req.Title,
			Steps:       req.Steps,
			Servings:    req.Servings,
			PrepMinutes: req.PrepMinutes,
			CookMinutes: req.CookMinutes,
			RestMinutes: req.RestMinutes,
			Ingredients: toRecipeIngredients(req.Ingredients),
		},
		Status: domain.ProposalPending,
	}
	proposal.ID = proposalID
	proposal.InitTimestamps()

	if err := s.store.CreateProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("create proposal: %w", err)
	}

	s.logger.Info("proposal created", "proposal_id", proposalID, "recipe_id", recipeID, "proposer_id", actorID)
	return proposal, nil
}

// Get returns a proposal visible to the actor. Members of the target
// recipe's community may view its proposals.
func (s *ProposalService) Get(ctx context.Context, actorID, proposalID string) (*domain.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if _, err := s.memberOfRecipeCommunity(ctx, actorID, proposal.RecipeID); err != nil {
		return nil, err
	}
	return proposal, nil
}

// ListForRecipe returns every proposal filed against a recipe, newest first.
func (s *ProposalService) ListForRecipe(ctx context.Context, actorID, recipeID string) ([]*domain.Proposal, error) {
	if _, err := s.memberOfRecipeCommunity(ctx, actorID, recipeID); err != nil {
		return nil, err
	}
	proposals, err := s.store.ListProposalsForRecipe(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return proposals, nil
}

// Accept merges a pending proposal into its target and cascades the merged
// fields to the personal origin and every non-variant community sibling.
// Only the target recipe's creator may accept, and only while the target is
// unchanged since the proposal was filed.
func (s *ProposalService) Accept(ctx context.Context, actorID, proposalID string) (*domain.Proposal, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	target, err := s.getLiveRecipe(ctx, proposal.RecipeID)
	if err != nil {
		return nil, err
	}
	if target.CreatorID != actorID {
		return nil, domainerrors.Forbidden("only the recipe creator decides proposals")
	}
	if proposal.IsDecided() {
		return nil, domainerrors.Validation("proposal already decided")
	}
	if proposal.IsStaleFor(target) {
		return nil, domainerrors.Conflict("recipe changed since the proposal was filed")
	}

	targetIDs, err := s.cascadeTargets(ctx, target)
	if err != nil {
		return nil, err
	}

	activityID, err := id.Generate("act")
	if err != nil {
		return nil, fmt.Errorf("generate activity ID: %w", err)
	}

	now := time.Now()
	err = s.store.AcceptProposalCascade(ctx, store.AcceptProposalParams{
		Proposal:  proposal,
		TargetIDs: targetIDs,
		Content:   proposal.Content,
		Activity: &domain.Activity{
			ID:        activityID,
			RecipeID:  target.ID,
			ActorID:   actorID,
			Reason:    domain.ReasonProposalAccepted,
			Detail:    proposal.ID,
			CreatedAt: now,
		},
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domainerrors.Validation("proposal already decided")
		}
		return nil, fmt.Errorf("accept proposal: %w", err)
	}

	proposal.Status = domain.ProposalAccepted
	proposal.DecidedAt = &now

	s.logger.Info("proposal accepted",
		"proposal_id", proposal.ID,
		"recipe_id", target.ID,
		"cascade_targets", len(targetIDs))
	return proposal, nil
}

// Reject declines a pending proposal and forges the proposed content into a
// variant recipe owned by the proposer. Only the target recipe's creator may
// reject.
func (s *ProposalService) Reject(ctx context.Context, actorID, proposalID string) (*RejectProposalResult, error) {
	proposal, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	target, err := s.getLiveRecipe(ctx, proposal.RecipeID)
	if err != nil {
		return nil, err
	}
	if target.CreatorID != actorID {
		return nil, domainerrors.Forbidden("only the recipe creator decides proposals")
	}
	if proposal.IsDecided() {
		return nil, domainerrors.Validation("proposal already decided")
	}

	forge, err := s.buildVariantForge(proposal, target, actorID, domain.ReasonProposalRejected)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.store.RejectProposalWithVariant(ctx, store.RejectProposalParams{
		Proposal: proposal,
		Forge:    forge,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domainerrors.Validation("proposal already decided")
		}
		return nil, fmt.Errorf("reject proposal: %w", err)
	}

	proposal.Status = domain.ProposalRejected
	proposal.DecidedAt = &now

	s.logger.Info("proposal rejected",
		"proposal_id", proposal.ID,
		"recipe_id", target.ID,
		"variant_id", forge.Variant.ID)
	return &RejectProposalResult{Proposal: proposal, Variant: forge.Variant}, nil
}

// cascadeTargets lists every recipe an accepted proposal writes to: the
// target, its personal origin when one exists, and every non-variant
// community sibling sharing that personal origin. A fork whose origin is
// another community's recipe cascades to nothing but itself; variants stay
// untouched either way.
func (s *ProposalService) cascadeTargets(ctx context.Context, target *domain.Recipe) ([]string, error) {
	targetIDs := []string{target.ID}
	if target.OriginRecipeID == "" {
		return targetIDs, nil
	}

	origin, err := s.store.GetRecipe(ctx, target.OriginRecipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return targetIDs, nil
		}
		return nil, fmt.Errorf("get origin recipe: %w", err)
	}
	if !origin.IsPersonal() {
		return targetIDs, nil
	}
	if !origin.IsDeleted() {
		targetIDs = append(targetIDs, origin.ID)
	}

	siblings, err := s.store.ListCommunitySiblings(ctx, target.OriginRecipeID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("list sibling copies: %w", err)
	}
	for _, sibling := range siblings {
		targetIDs = append(targetIDs, sibling.ID)
	}
	return targetIDs, nil
}

// buildVariantForge assembles the variant recipe a rejected or orphaned
// proposal turns into. Ingredients come from the proposal alone; a proposal
// filed without any forges a variant without any.
func (s *ProposalService) buildVariantForge(proposal *domain.Proposal, target *domain.Recipe, actorID string, reason domain.ActivityReason) (store.VariantForge, error) {
	variantID, err := id.Generate("rcp")
	if err != nil {
		return store.VariantForge{}, fmt.Errorf("generate variant ID: %w", err)
	}
	activityID, err := id.Generate("act")
	if err != nil {
		return store.VariantForge{}, fmt.Errorf("generate activity ID: %w", err)
	}

	variant := &domain.Recipe{
		CreatorID:      proposal.ProposerID,
		CommunityID:    target.CommunityID,
		OriginRecipeID: target.ID,
		IsVariant:      true,
	}
	proposal.Content.Apply(variant)
	variant.ID = variantID
	variant.InitTimestamps()

	return store.VariantForge{
		Variant:     variant,
		Ingredients: proposal.Content.Ingredients,
		Activity: &domain.Activity{
			ID:        activityID,
			RecipeID:  variantID,
			ActorID:   actorID,
			Reason:    reason,
			Detail:    proposal.ID,
			CreatedAt: time.Now(),
		},
	}, nil
}

func (s *ProposalService) getProposal(ctx context.Context, proposalID string) (*domain.Proposal, error) {
	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("proposal not found")
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return proposal, nil
}

// getLiveRecipe fetches a recipe, reporting soft-deleted rows as gone.
func (s *ProposalService) getLiveRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
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

func (s *ProposalService) memberOfRecipeCommunity(ctx context.Context, actorID, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.IsPersonal() {
		if recipe.CreatorID != actorID {
			return nil, domainerrors.Forbidden("not your recipe")
		}
		return recipe, nil
	}
	if _, err := s.store.GetMembership(ctx, recipe.CommunityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return recipe, nil
}
