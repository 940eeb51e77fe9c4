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

// CommunityService manages communities, memberships, and invitations.
type CommunityService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCommunityService creates a new community service.
func NewCommunityService(store store.Store, validator *validation.Validator, logger *slog.Logger) *CommunityService {
	return &CommunityService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateCommunityRequest creates a new community.
type CreateCommunityRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// InviteRequest invites a user to a community by email.
type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Create makes a new community owned by the actor. The owner joins as
// moderator in the same transaction.
func (s *CommunityService) Create(ctx context.Context, actorID string, req CreateCommunityRequest) (*domain.Community, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	communityID, err := id.Generate("cmt")
	if err != nil {
		return nil, fmt.Errorf("generate community ID: %w", err)
	}
	membershipID, err := id.Generate("mem")
	if err != nil {
		return nil, fmt.Errorf("generate membership ID: %w", err)
	}

	community := &domain.Community{
		Name:        req.Name,
		Slug:        util.NormalizeSlug(req.Name),
		Description: req.Description,
		OwnerID:     actorID,
	}
	community.ID = communityID
	community.InitTimestamps()

	owner := &domain.Membership{
		ID:          membershipID,
		CommunityID: communityID,
		UserID:      actorID,
		Role:        domain.RoleModerator,
		JoinedAt:    time.Now(),
	}

	if err := s.store.CreateCommunity(ctx, community, owner); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("a community with that name already exists")
		}
		return nil, fmt.Errorf("create community: %w", err)
	}

	s.logger.Info("community created", "community_id", communityID, "owner_id", actorID)
	return community, nil
}

// Get returns a community the actor is a member of.
func (s *CommunityService) Get(ctx context.Context, actorID, communityID string) (*domain.Community, error) {
	if _, err := s.requireMembership(ctx, communityID, actorID); err != nil {
		return nil, err
	}
	return s.getCommunity(ctx, communityID)
}

// ListForUser returns the communities the actor belongs to.
func (s *CommunityService) ListForUser(ctx context.Context, actorID string) ([]*domain.Community, error) {
	communities, err := s.store.ListCommunitiesForUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	return communities, nil
}

// ListMembers returns the memberships of a community the actor belongs to.
func (s *CommunityService) ListMembers(ctx context.Context, actorID, communityID string) ([]*domain.Membership, error) {
	if _, err := s.requireMembership(ctx, communityID, actorID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMemberships(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return members, nil
}

// Invite creates a pending invitation. Only moderators may invite, and at
// most one pending invitation exists per (community, email).
func (s *CommunityService) Invite(ctx context.Context, actorID, communityID string, req InviteRequest) (*domain.Invitation, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.requireModerator(ctx, communityID, actorID); err != nil {
		return nil, err
	}
	if _, err := s.getCommunity(ctx, communityID); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)

	// An invited user who is already a member is a conflict, not a no-op.
	if invitee, err := s.store.GetUserByEmail(ctx, email); err == nil {
		if _, err := s.store.GetMembership(ctx, communityID, invitee.ID); err == nil {
			return nil, domainerrors.AlreadyExists("user is already a member")
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("check membership: %w", err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup invitee: %w", err)
	}

	if _, err := s.store.GetPendingInvitation(ctx, communityID, email); err == nil {
		return nil, domainerrors.AlreadyExists("an invitation is already pending for that email")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check pending invitation: %w", err)
	}

	invitationID, err := id.Generate("inv")
	if err != nil {
		return nil, fmt.Errorf("generate invitation ID: %w", err)
	}

	inv := &domain.Invitation{
		CommunityID:  communityID,
		InviterID:    actorID,
		InviteeEmail: email,
		Status:       domain.InvitationPending,
	}
	inv.ID = invitationID
	inv.InitTimestamps()

	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.logger.Info("invitation created", "community_id", communityID, "invitation_id", invitationID)
	return inv, nil
}

// AcceptInvitation joins the actor to the inviting community. The actor's
// email must match the invitation and the invitation must still be pending.
func (s *CommunityService) AcceptInvitation(ctx context.Context, actorID, invitationID string) (*domain.Membership, error) {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("invitation not found")
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	actor, err := s.store.GetUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if actor.Email != inv.InviteeEmail {
		return nil, domainerrors.Forbidden("invitation was issued to a different email")
	}

	switch inv.Status {
	case domain.InvitationPending:
		// Fall through to accept.
	case domain.InvitationCancelled:
		return nil, domainerrors.Gone("invitation was cancelled")
	default:
		return nil, domainerrors.Conflict("invitation already responded to")
	}

	// The community may have dissolved after the invitation went out.
	if _, err := s.getCommunity(ctx, inv.CommunityID); err != nil {
		return nil, err
	}

	membershipID, err := id.Generate("mem")
	if err != nil {
		return nil, fmt.Errorf("generate membership ID: %w", err)
	}
	membership := &domain.Membership{
		ID:          membershipID,
		CommunityID: inv.CommunityID,
		UserID:      actorID,
		Role:        domain.RoleMember,
		JoinedAt:    time.Now(),
	}

	if err := s.store.AcceptInvitation(ctx, inv, membership); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, domainerrors.Conflict("invitation already responded to")
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.AlreadyExists("already a member of this community")
		}
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	s.logger.Info("invitation accepted", "community_id", inv.CommunityID, "user_id", actorID)
	return membership, nil
}

// Promote raises a member to moderator. Only moderators may promote.
func (s *CommunityService) Promote(ctx context.Context, actorID, communityID, userID string) error {
	if _, err := s.requireModerator(ctx, communityID, actorID); err != nil {
		return err
	}

	target, err := s.requireMembership(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if target.IsModerator() {
		return domainerrors.Conflict("user is already a moderator")
	}

	if err := s.store.UpdateMembershipRole(ctx, communityID, userID, domain.RoleModerator); err != nil {
		return fmt.Errorf("update membership role: %w", err)
	}

	s.logger.Info("member promoted", "community_id", communityID, "user_id", userID)
	return nil
}

// getCommunity maps soft-deleted and missing communities to domain errors.
func (s *CommunityService) getCommunity(ctx context.Context, communityID string) (*domain.Community, error) {
	community, err := s.store.GetCommunity(ctx, communityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("community not found")
		}
		return nil, fmt.Errorf("get community: %w", err)
	}
	return community, nil
}

func (s *CommunityService) requireMembership(ctx context.Context, communityID, userID string) (*domain.Membership, error) {
	membership, err := s.store.GetMembership(ctx, communityID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return membership, nil
}

func (s *CommunityService) requireModerator(ctx context.Context, communityID, userID string) (*domain.Membership, error) {
	membership, err := s.requireMembership(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if !membership.IsModerator() {
		return nil, domainerrors.Forbidden("moderator role required")
	}
	return membership, nil
}
