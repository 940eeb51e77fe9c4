// Package store defines the persistence boundary for the Simmer engine.
package store

import (
	"context"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
)

// TagFilter narrows tag listings.
type TagFilter struct {
	Scope       domain.TagScope
	CommunityID string
	Status      domain.TagStatus
}

// VariantForge describes a variant recipe to create from proposed content,
// together with the activity entry recording why it was forged.
type VariantForge struct {
	Variant     *domain.Recipe
	Ingredients []domain.RecipeIngredient
	Activity    *domain.Activity
}

// AcceptProposalParams is the batch applied when a proposal is accepted.
// TargetIDs lists every recipe the merged content is written to: the target
// itself, its personal origin, and every non-variant community sibling.
type AcceptProposalParams struct {
	Proposal  *domain.Proposal
	TargetIDs []string
	Content   domain.RecipeContent
	Activity  *domain.Activity
}

// RejectProposalParams is the batch applied when a proposal is rejected:
// the status flip plus the forged variant.
type RejectProposalParams struct {
	Proposal *domain.Proposal
	Forge    VariantForge
}

// OrphanResolution pairs a pending proposal with the variant that preserves
// the proposer's work when the recipe owner departs.
type OrphanResolution struct {
	Proposal *domain.Proposal
	Forge    VariantForge
}

// RemoveMemberParams is the batch applied when a member leaves or is kicked.
// When Dissolve is set the community is soft-deleted after the orphan batch:
// pending invitations are cancelled and its recipes soft-deleted.
type RemoveMemberParams struct {
	CommunityID string
	UserID      string
	Orphans     []OrphanResolution
	Dissolve    bool
}

// DecideTagParams is the moderator decision on a pending community tag.
// Rejection hard-deletes the tag and its recipe links. Either way every
// suggestion waiting on the tag is moved to the matching terminal status.
type DecideTagParams struct {
	TagID     string
	Approve   bool
	DecidedAt time.Time
}

// DecideSuggestionParams is the owner decision on a tag suggestion. The
// suggestion is passed already carrying its new status, tag ID, and decision
// time. CreateTag is non-nil when resolution created a new tag row, and
// AttachTagID names the tag to link to the recipe (empty for rejection).
type DecideSuggestionParams struct {
	Suggestion  *domain.TagSuggestion
	CreateTag   *domain.Tag
	AttachTagID string
	RecipeID    string
}

// ShareRecipeParams is the batch applied when a recipe is forked into
// another community. AncestorIDs lists every recipe on the origin chain,
// source included, whose analytics counters are incremented.
type ShareRecipeParams struct {
	Fork         *domain.Recipe
	Ingredients  []domain.RecipeIngredient
	CreateTags   []*domain.Tag
	AttachTagIDs []string
	AncestorIDs  []string
	Activity     *domain.Activity
}

// Store is the interface services use to persist and query engine state.
// Multi-row batches run inside a single transaction: either the whole batch
// applies or none of it does.
type Store interface {
	// Users.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CountUsers(ctx context.Context) (int, error)

	// Sessions.
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	RotateSessionToken(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Communities and memberships.
	CreateCommunity(ctx context.Context, community *domain.Community, owner *domain.Membership) error
	GetCommunity(ctx context.Context, id string) (*domain.Community, error)
	ListCommunitiesForUser(ctx context.Context, userID string) ([]*domain.Community, error)
	GetMembership(ctx context.Context, communityID, userID string) (*domain.Membership, error)
	ListMemberships(ctx context.Context, communityID string) ([]*domain.Membership, error)
	CountMembers(ctx context.Context, communityID string) (int, error)
	CountModerators(ctx context.Context, communityID string) (int, error)
	UpdateMembershipRole(ctx context.Context, communityID, userID string, role domain.MemberRole) error
	RemoveMemberCascade(ctx context.Context, params RemoveMemberParams) error

	// Invitations.
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitation(ctx context.Context, id string) (*domain.Invitation, error)
	GetPendingInvitation(ctx context.Context, communityID, email string) (*domain.Invitation, error)
	AcceptInvitation(ctx context.Context, inv *domain.Invitation, membership *domain.Membership) error

	// Recipes.
	CreateRecipe(ctx context.Context, recipe *domain.Recipe, ingredients []domain.RecipeIngredient) error
	CreateRecipePair(ctx context.Context, personal, community *domain.Recipe, ingredients []domain.RecipeIngredient) error
	GetRecipe(ctx context.Context, id string) (*domain.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *domain.Recipe, ingredients []domain.RecipeIngredient) error
	SoftDeleteRecipe(ctx context.Context, id string) error
	GetRecipeIngredients(ctx context.Context, recipeID string) ([]domain.RecipeIngredient, error)
	ListPersonalRecipes(ctx context.Context, userID string, page PaginationParams) (*PaginatedResult[*domain.Recipe], error)
	ListCommunityRecipes(ctx context.Context, communityID string, page PaginationParams) (*PaginatedResult[*domain.Recipe], error)
	ListVariants(ctx context.Context, recipeID string, page PaginationParams) (*PaginatedResult[*domain.Recipe], error)
	ListCommunitySiblings(ctx context.Context, originRecipeID, excludeRecipeID string) ([]*domain.Recipe, error)
	ListMemberRecipes(ctx context.Context, communityID, userID string) ([]*domain.Recipe, error)

	// Proposals.
	CreateProposal(ctx context.Context, proposal *domain.Proposal) error
	GetProposal(ctx context.Context, id string) (*domain.Proposal, error)
	ListProposalsForRecipe(ctx context.Context, recipeID string) ([]*domain.Proposal, error)
	ListPendingProposalsForRecipes(ctx context.Context, recipeIDs []string) ([]*domain.Proposal, error)
	AcceptProposalCascade(ctx context.Context, params AcceptProposalParams) error
	RejectProposalWithVariant(ctx context.Context, params RejectProposalParams) error

	// Tags.
	FindTagCandidates(ctx context.Context, slug, communityID string) (domain.TagCandidates, error)
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	ListTags(ctx context.Context, filter TagFilter) ([]*domain.Tag, error)
	AttachRecipeTag(ctx context.Context, recipeID string, tag *domain.Tag, createTag bool) error
	ListRecipeTags(ctx context.Context, recipeID string) ([]*domain.Tag, error)
	CountRecipeTags(ctx context.Context, recipeID string) (int, error)
	DecideTagCascade(ctx context.Context, params DecideTagParams) error
	DeleteTagCascade(ctx context.Context, tagID string) error

	// Tag suggestions.
	CreateSuggestion(ctx context.Context, suggestion *domain.TagSuggestion) error
	GetSuggestion(ctx context.Context, id string) (*domain.TagSuggestion, error)
	GetActiveSuggestion(ctx context.Context, recipeID, tagSlug string) (*domain.TagSuggestion, error)
	ListSuggestionsForRecipe(ctx context.Context, recipeID string) ([]*domain.TagSuggestion, error)
	DecideSuggestionCascade(ctx context.Context, params DecideSuggestionParams) error

	// Sharing and analytics.
	ShareRecipeCascade(ctx context.Context, params ShareRecipeParams) error
	GetRecipeAnalytics(ctx context.Context, recipeID string) (*domain.RecipeAnalytics, error)

	// Activity log.
	ListRecipeActivity(ctx context.Context, recipeID string) ([]*domain.Activity, error)
}
