package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
	"github.com/simmerapp/simmer-server/internal/store"
)

// MemberService handles member departure: voluntary leave and moderator
// kicks, including orphan reconciliation and community dissolution.
type MemberService struct {
	store     store.Store
	proposals *ProposalService
	logger    *slog.Logger
}

// NewMemberService creates a new member service.
func NewMemberService(store store.Store, proposals *ProposalService, logger *slog.Logger) *MemberService {
	return &MemberService{
		store:     store,
		proposals: proposals,
		logger:    logger,
	}
}

// DepartureResult reports what a leave/kick did.
type DepartureResult struct {
	// OrphanedProposals counts pending proposals auto-rejected into variants.
	OrphanedProposals int `json:"orphaned_proposals"`

	// Dissolved is set when the departure emptied the community and it was
	// soft-deleted along with its recipes and pending invitations.
	Dissolved bool `json:"dissolved"`
}

// Leave removes the actor from a community. A moderator may not leave while
// other members remain unless another moderator exists.
func (s *MemberService) Leave(ctx context.Context, actorID, communityID string) (*DepartureResult, error) {
	membership, err := s.store.GetMembership(ctx, communityID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	memberCount, err := s.store.CountMembers(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}

	if membership.IsModerator() && memberCount > 1 {
		moderators, err := s.store.CountModerators(ctx, communityID)
		if err != nil {
			return nil, fmt.Errorf("count moderators: %w", err)
		}
		if moderators == 1 {
			return nil, domainerrors.Forbidden("promote another moderator before leaving")
		}
	}

	return s.remove(ctx, actorID, communityID, actorID, memberCount)
}

// Kick removes another member from a community. Moderators only, and
// moderators cannot be kicked.
func (s *MemberService) Kick(ctx context.Context, actorID, communityID, userID string) (*DepartureResult, error) {
	actor, err := s.store.GetMembership(ctx, communityID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if !actor.IsModerator() {
		return nil, domainerrors.Forbidden("moderator role required")
	}
	if actorID == userID {
		return nil, domainerrors.Validation("use leave to remove yourself")
	}

	target, err := s.store.GetMembership(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user is not a member")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if target.IsModerator() {
		return nil, domainerrors.Forbidden("moderators cannot be kicked")
	}

	memberCount, err := s.store.CountMembers(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}

	return s.remove(ctx, actorID, communityID, userID, memberCount)
}

// remove runs orphan reconciliation for the departing member's recipes,
// deletes the membership, and dissolves the community when it would be left
// empty. The whole batch is one transaction: a reconciliation sub-step
// failing aborts the departure.
func (s *MemberService) remove(ctx context.Context, actorID, communityID, userID string, memberCount int) (*DepartureResult, error) {
	orphans, err := s.collectOrphans(ctx, actorID, communityID, userID)
	if err != nil {
		return nil, err
	}

	dissolve := memberCount <= 1

	err = s.store.RemoveMemberCascade(ctx, store.RemoveMemberParams{
		CommunityID: communityID,
		UserID:      userID,
		Orphans:     orphans,
		Dissolve:    dissolve,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user is not a member")
		}
		return nil, fmt.Errorf("remove member: %w", err)
	}

	s.logger.Info("member removed",
		"community_id", communityID,
		"user_id", userID,
		"orphaned_proposals", len(orphans),
		"dissolved", dissolve)

	return &DepartureResult{
		OrphanedProposals: len(orphans),
		Dissolved:         dissolve,
	}, nil
}

// collectOrphans builds the resolution batch for every pending proposal
// targeting a recipe the departing member owns in the community. Each
// proposal is rejected and its content forged into a variant owned by the
// proposer, so no proposal is left stuck against an undecidable recipe.
func (s *MemberService) collectOrphans(ctx context.Context, actorID, communityID, userID string) ([]store.OrphanResolution, error) {
	recipes, err := s.store.ListMemberRecipes(ctx, communityID, userID)
	if err != nil {
		return nil, fmt.Errorf("list member recipes: %w", err)
	}
	if len(recipes) == 0 {
		return nil, nil
	}

	recipeIDs := make([]string, len(recipes))
	byID := make(map[string]*domain.Recipe, len(recipes))
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		byID[r.ID] = r
	}

	pending, err := s.store.ListPendingProposalsForRecipes(ctx, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("list pending proposals: %w", err)
	}

	orphans := make([]store.OrphanResolution, 0, len(pending))
	for _, proposal := range pending {
		target := byID[proposal.RecipeID]
		forge, err := s.proposals.buildVariantForge(proposal, target, actorID, domain.ReasonProposalOrphaned)
		if err != nil {
			return nil, err
		}
		orphans = append(orphans, store.OrphanResolution{
			Proposal: proposal,
			Forge:    forge,
		})
	}
	return orphans, nil
}
