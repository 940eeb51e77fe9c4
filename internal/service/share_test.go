package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
)

func TestShareGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	member := env.registerUser(t, "member")
	source := env.createCommunity(t, owner.ID, "Source Cooks")
	target := env.createCommunity(t, owner.ID, "Target Cooks")
	env.joinCommunity(t, owner.ID, source.ID, member)

	recipe := env.createCommunityRecipe(t, owner.ID, source.ID, "Soup", []string{"Original"})

	// Personal recipes cannot be shared.
	personal, err := env.recipes.Create(ctx, owner.ID, CreateRecipeRequest{
		Title: "Private Soup", Steps: []string{"Simmer"}, Servings: 2,
	})
	require.NoError(t, err)
	_, err = env.shares.Share(ctx, owner.ID, personal.ID, ShareRequest{TargetCommunityID: target.ID})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// Sharing into the same community is rejected.
	_, err = env.shares.Share(ctx, owner.ID, recipe.ID, ShareRequest{TargetCommunityID: source.ID})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// The actor must belong to the target community.
	_, err = env.shares.Share(ctx, member.ID, recipe.ID, ShareRequest{TargetCommunityID: target.ID})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	// A plain member who is not the creator cannot share someone else's recipe.
	env.joinCommunity(t, owner.ID, target.ID, member)
	_, err = env.shares.Share(ctx, member.ID, recipe.ID, ShareRequest{TargetCommunityID: target.ID})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestShareForkAndAncestorFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	cmtX := env.createCommunity(t, owner.ID, "Community X")
	cmtY := env.createCommunity(t, owner.ID, "Community Y")
	cmtZ := env.createCommunity(t, owner.ID, "Community Z")

	recipeA, err := env.recipes.Create(ctx, owner.ID, CreateRecipeRequest{
		Title:       "Root Soup",
		Steps:       []string{"Original"},
		Servings:    4,
		CommunityID: cmtX.ID,
		Ingredients: []IngredientInput{{Name: "tomato", Quantity: 6}},
	})
	require.NoError(t, err)

	// Fork A into Y.
	fork1, err := env.shares.Share(ctx, owner.ID, recipeA.ID, ShareRequest{TargetCommunityID: cmtY.ID})
	require.NoError(t, err)
	assert.Equal(t, recipeA.ID, fork1.OriginRecipeID)
	assert.Equal(t, cmtX.ID, fork1.SharedFromCommunityID)
	assert.False(t, fork1.IsVariant)

	// Ingredients were copied by value.
	detail, err := env.recipes.Get(ctx, owner.ID, fork1.ID)
	require.NoError(t, err)
	require.Len(t, detail.Ingredients, 1)
	assert.Equal(t, "tomato", detail.Ingredients[0].Name)

	// Fork the fork into Z; the whole lineage gets credited.
	fork2, err := env.shares.Share(ctx, owner.ID, fork1.ID, ShareRequest{TargetCommunityID: cmtZ.ID})
	require.NoError(t, err)
	assert.Equal(t, fork1.ID, fork2.OriginRecipeID)

	statsA, err := env.recipes.Analytics(ctx, owner.ID, recipeA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), statsA.Shares)
	assert.Equal(t, int64(2), statsA.Forks)

	statsF1, err := env.recipes.Analytics(ctx, owner.ID, fork1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), statsF1.Shares)
	assert.Equal(t, int64(1), statsF1.Forks)

	statsF2, err := env.recipes.Analytics(ctx, owner.ID, fork2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), statsF2.Shares)
}

func TestShareCopiesTagsIntoTargetScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	source := env.createCommunity(t, owner.ID, "Source Cooks")
	target := env.createCommunity(t, owner.ID, "Target Cooks")

	recipe := env.createCommunityRecipe(t, owner.ID, source.ID, "Soup", []string{"Original"})
	_, err := env.tags.Attach(ctx, owner.ID, recipe.ID, AttachTagRequest{Name: "fusion"})
	require.NoError(t, err)

	fork, err := env.shares.Share(ctx, owner.ID, recipe.ID, ShareRequest{TargetCommunityID: target.ID})
	require.NoError(t, err)

	detail, err := env.recipes.Get(ctx, owner.ID, fork.ID)
	require.NoError(t, err)
	require.Len(t, detail.Tags, 1)

	// The copied tag is scoped to the target community and pends moderation
	// there, independent of the source community's tag.
	copied := detail.Tags[0]
	assert.Equal(t, domain.TagScopeCommunity, copied.Scope)
	assert.Equal(t, domain.TagPending, copied.Status)
	assert.Equal(t, target.ID, copied.CommunityID)
}

func TestShareRecordsActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	source := env.createCommunity(t, owner.ID, "Source Cooks")
	target := env.createCommunity(t, owner.ID, "Target Cooks")
	recipe := env.createCommunityRecipe(t, owner.ID, source.ID, "Soup", []string{"Original"})

	fork, err := env.shares.Share(ctx, owner.ID, recipe.ID, ShareRequest{TargetCommunityID: target.ID})
	require.NoError(t, err)

	entries, err := env.recipes.Activity(ctx, owner.ID, recipe.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ReasonRecipeShared, entries[0].Reason)
	assert.Equal(t, fork.ID, entries[0].Detail)
}
