package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
)

func TestCreateSuggestionGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	member := env.registerUser(t, "member")
	outsider := env.registerUser(t, "outsider")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")
	env.joinCommunity(t, owner.ID, community.ID, member)
	recipe := env.createCommunityRecipe(t, owner.ID, community.ID, "Soup", []string{"Original"})

	// Owners tag directly, they do not suggest to themselves.
	_, err := env.suggestions.Create(ctx, owner.ID, recipe.ID, CreateSuggestionRequest{Name: "quick"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// Non-members cannot suggest.
	_, err = env.suggestions.Create(ctx, outsider.ID, recipe.ID, CreateSuggestionRequest{Name: "quick"})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	suggestion, err := env.suggestions.Create(ctx, member.ID, recipe.ID, CreateSuggestionRequest{Name: "quick"})
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionPendingOwner, suggestion.Status)

	// Only one active suggestion per (recipe, name).
	_, err = env.suggestions.Create(ctx, member.ID, recipe.ID, CreateSuggestionRequest{Name: "Quick"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestAcceptSuggestionWithApprovedGlobalTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	member := env.registerUser(t, "member")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")
	env.joinCommunity(t, owner.ID, community.ID, member)
	recipe := env.createCommunityRecipe(t, owner.ID, community.ID, "Soup", []string{"Original"})

	// Seed a global approved tag by tagging a personal recipe.
	personal, err := env.recipes.Create(ctx, member.ID, CreateRecipeRequest{
		Title: "My Soup", Steps: []string{"Simmer"}, Servings: 2,
	})
	require.NoError(t, err)
	globalTag, err := env.tags.Attach(ctx, member.ID, personal.ID, AttachTagRequest{Name: "comfort-food"})
	require.NoError(t, err)

	suggestion, err := env.suggestions.Create(ctx, member.ID, recipe.ID, CreateSuggestionRequest{Name: "comfort-food"})
	require.NoError(t, err)

	// Resolving onto an approved tag finishes immediately.
	accepted, err := env.suggestions.Accept(ctx, owner.ID, suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionApproved, accepted.Status)
	assert.Equal(t, globalTag.ID, accepted.TagID)
	require.NotNil(t, accepted.DecidedAt)

	detail, err := env.recipes.Get(ctx, owner.ID, recipe.ID)
	require.NoError(t, err)
	require.Len(t, detail.Tags, 1)
	assert.Equal(t, globalTag.ID, detail.Tags[0].ID)

	// Deciding again fails.
	_, err = env.suggestions.Accept(ctx, owner.ID, suggestion.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestRejectSuggestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	member := env.registerUser(t, "member")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")
	env.joinCommunity(t, owner.ID, community.ID, member)
	recipe := env.createCommunityRecipe(t, owner.ID, community.ID, "Soup", []string{"Original"})

	suggestion, err := env.suggestions.Create(ctx, member.ID, recipe.ID, CreateSuggestionRequest{Name: "quick"})
	require.NoError(t, err)

	// Only the owner decides.
	_, err = env.suggestions.Reject(ctx, member.ID, suggestion.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	rejected, err := env.suggestions.Reject(ctx, owner.ID, suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionRejected, rejected.Status)

	// No tag was created or attached.
	detail, err := env.recipes.Get(ctx, owner.ID, recipe.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Tags)

	// A rejected suggestion frees the name for a new suggestion.
	_, err = env.suggestions.Create(ctx, member.ID, recipe.ID, CreateSuggestionRequest{Name: "quick"})
	require.NoError(t, err)
}

func TestSuggestionOnDeletedRecipe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	member := env.registerUser(t, "member")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")
	env.joinCommunity(t, owner.ID, community.ID, member)
	recipe := env.createCommunityRecipe(t, owner.ID, community.ID, "Soup", []string{"Original"})

	suggestion, err := env.suggestions.Create(ctx, member.ID, recipe.ID, CreateSuggestionRequest{Name: "quick"})
	require.NoError(t, err)

	require.NoError(t, env.recipes.Delete(ctx, owner.ID, recipe.ID))

	// A deleted target makes the suggestion undecidable.
	_, err = env.suggestions.Accept(ctx, owner.ID, suggestion.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// And settles it as rejected rather than leaving it pending forever.
	settled, err := env.store.GetSuggestion(ctx, suggestion.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionRejected, settled.Status)
	require.NotNil(t, settled.DecidedAt)

	// A later decision attempt reports it as already decided.
	_, err = env.suggestions.Reject(ctx, owner.ID, suggestion.ID)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
