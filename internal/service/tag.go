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

// TagService manages tags: attachment with staged resolution, listing, and
// moderator decisions on pending community tags.
type TagService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, validator *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// AttachTagRequest attaches one tag name to a recipe.
type AttachTagRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

// resolveTag runs staged tag resolution for a recipe and returns the tag to
// attach plus whether a new tag row must be created.
func resolveTag(ctx context.Context, st store.Store, actorID string, recipe *domain.Recipe, name string) (*domain.Tag, bool, error) {
	slug := util.NormalizeSlug(name)
	if slug == "" {
		return nil, false, domainerrors.Validation("tag name has no usable characters")
	}

	candidates, err := st.FindTagCandidates(ctx, slug, recipe.CommunityID)
	if err != nil {
		return nil, false, fmt.Errorf("find tag candidates: %w", err)
	}

	resolution := domain.ResolveTagName(recipe.CommunityID, candidates)
	if resolution.Reused != nil {
		return resolution.Reused, false, nil
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		return nil, false, fmt.Errorf("generate tag ID: %w", err)
	}
	tag := &domain.Tag{
		Name:        name,
		Slug:        slug,
		Scope:       resolution.Create.Scope,
		Status:      resolution.Create.Status,
		CommunityID: resolution.Create.CommunityID,
		CreatedBy:   actorID,
	}
	tag.ID = tagID
	tag.InitTimestamps()
	return tag, true, nil
}

// Attach adds a tag to a recipe the actor can edit. The recipe creator tags
// their own recipes directly; other members go through suggestions.
func (s *TagService) Attach(ctx context.Context, actorID, recipeID string, req AttachTagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	recipe, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.CreatorID != actorID {
		return nil, domainerrors.Forbidden("only the creator tags a recipe directly")
	}

	count, err := s.store.CountRecipeTags(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("count recipe tags: %w", err)
	}
	if count >= domain.MaxTagsPerRecipe {
		return nil, domainerrors.Validationf("a recipe carries at most %d tags", domain.MaxTagsPerRecipe)
	}

	tag, create, err := resolveTag(ctx, s.store, actorID, recipe, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.store.AttachRecipeTag(ctx, recipeID, tag, create); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("tag name already taken")
		}
		return nil, fmt.Errorf("attach tag: %w", err)
	}

	s.logger.Info("tag attached", "recipe_id", recipeID, "tag_id", tag.ID, "created", create)
	return tag, nil
}

// ListCommunityTags returns a community's tags, optionally filtered to one
// moderation status. Members only.
func (s *TagService) ListCommunityTags(ctx context.Context, actorID, communityID string, status domain.TagStatus) ([]*domain.Tag, error) {
	if _, err := s.store.GetMembership(ctx, communityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	tags, err := s.store.ListTags(ctx, store.TagFilter{
		Scope:       domain.TagScopeCommunity,
		CommunityID: communityID,
		Status:      status,
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// ListGlobalTags returns the approved global tag vocabulary.
func (s *TagService) ListGlobalTags(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx, store.TagFilter{
		Scope:  domain.TagScopeGlobal,
		Status: domain.TagApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// Decide approves or rejects a pending community tag. Moderators only.
// Rejection removes the tag and its recipe links; either way every
// suggestion waiting on the tag moves to the matching terminal status.
func (s *TagService) Decide(ctx context.Context, actorID, tagID string, approve bool) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("tag not found")
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	if tag.Scope != domain.TagScopeCommunity {
		return nil, domainerrors.Validation("only community tags go through moderation")
	}
	if tag.Status != domain.TagPending {
		return nil, domainerrors.Validation("tag already decided")
	}

	membership, err := s.store.GetMembership(ctx, tag.CommunityID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if !membership.IsModerator() {
		return nil, domainerrors.Forbidden("moderator role required")
	}

	err = s.store.DecideTagCascade(ctx, store.DecideTagParams{
		TagID:     tagID,
		Approve:   approve,
		DecidedAt: time.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, domainerrors.Validation("tag already decided")
		}
		return nil, fmt.Errorf("decide tag: %w", err)
	}

	s.logger.Info("community tag decided", "tag_id", tagID, "approved", approve, "moderator_id", actorID)

	if approve {
		tag.Status = domain.TagApproved
	}
	// On rejection the tag row is gone; the caller gets its last known state.
	return tag, nil
}

// Delete removes an approved community tag and its recipe links.
// Moderators only.
func (s *TagService) Delete(ctx context.Context, actorID, tagID string) error {
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("tag not found")
		}
		return fmt.Errorf("get tag: %w", err)
	}
	if tag.Scope != domain.TagScopeCommunity {
		return domainerrors.Validation("global tags cannot be deleted")
	}

	membership, err := s.store.GetMembership(ctx, tag.CommunityID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.Forbidden("not a member of this community")
		}
		return fmt.Errorf("get membership: %w", err)
	}
	if !membership.IsModerator() {
		return domainerrors.Forbidden("moderator role required")
	}

	if err := s.store.DeleteTagCascade(ctx, tagID); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

func (s *TagService) getLiveRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
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
