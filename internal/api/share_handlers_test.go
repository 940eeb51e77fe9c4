package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareRecipe(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, userID := ts.setupRootUser(t)
	source := ts.createCommunity(t, token, "Soup Club")
	target := ts.createCommunity(t, token, "Baking Guild")

	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi", "Whisk in miso"},
		"servings":     2,
		"community_id": source.ID,
		"ingredients": []map[string]any{
			{"name": "Dashi", "quantity": 500, "unit": "ml"},
		},
	})

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/share", bearer(token), map[string]any{
		"target_community_id": target.ID,
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[RecipeResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	fork := envelope.Data
	assert.NotEqual(t, recipe.ID, fork.ID)
	assert.Equal(t, target.ID, fork.CommunityID)
	assert.Equal(t, source.ID, fork.SharedFromCommunityID)
	assert.Equal(t, recipe.ID, fork.OriginRecipeID)
	assert.Equal(t, userID, fork.CreatorID)
	assert.Equal(t, "Miso Soup", fork.Title)

	// The fork carries the source ingredients.
	resp = ts.api.Get("/api/v1/recipes/"+fork.ID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var detail testEnvelope[RecipeDetailResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &detail))
	require.Len(t, detail.Data.Ingredients, 1)
	assert.Equal(t, "Dashi", detail.Data.Ingredients[0].Name)
}

func TestShareRecipe_CreditsAncestors(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	source := ts.createCommunity(t, token, "Soup Club")
	target := ts.createCommunity(t, token, "Baking Guild")

	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": source.ID,
	})

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/share", bearer(token), map[string]any{
		"target_community_id": target.ID,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	// The source recipe's share counter moved.
	resp = ts.api.Get("/api/v1/recipes/"+recipe.ID+"/analytics", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var analytics testEnvelope[AnalyticsResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &analytics))
	assert.Equal(t, int64(1), analytics.Data.Shares)

	// So did the personal origin behind the community copy.
	resp = ts.api.Get("/api/v1/recipes/"+recipe.OriginRecipeID+"/analytics", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &analytics))
	assert.Equal(t, int64(1), analytics.Data.Shares)
}

func TestShareRecipe_PersonalRejected(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	target := ts.createCommunity(t, token, "Baking Guild")

	recipe := ts.createRecipe(t, token, map[string]any{
		"title":    "Private Stew",
		"steps":    []string{"Stew"},
		"servings": 2,
	})

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/share", bearer(token), map[string]any{
		"target_community_id": target.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestShareRecipe_SameCommunity(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	source := ts.createCommunity(t, token, "Soup Club")

	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": source.ID,
	})

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/share", bearer(token), map[string]any{
		"target_community_id": source.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestShareRecipe_TargetNonMember(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rootToken, _ := ts.setupRootUser(t)
	source := ts.createCommunity(t, rootToken, "Soup Club")

	otherToken, _ := ts.registerUser(t, "Other", "other@example.com")
	target := ts.createCommunity(t, otherToken, "Private Guild")

	recipe := ts.createRecipe(t, rootToken, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": source.ID,
	})

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/share", bearer(rootToken), map[string]any{
		"target_community_id": target.ID,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestShareRecipe_RequiresCreatorOrModerator(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rootToken, _ := ts.setupRootUser(t)
	source := ts.createCommunity(t, rootToken, "Soup Club")
	target := ts.createCommunity(t, rootToken, "Baking Guild")

	memberToken, _ := ts.registerUser(t, "Member", "member@example.com")
	ts.joinCommunity(t, rootToken, memberToken, "member@example.com", source.ID)
	ts.joinCommunity(t, rootToken, memberToken, "member@example.com", target.ID)

	recipe := ts.createRecipe(t, rootToken, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": source.ID,
	})

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/share", bearer(memberToken), map[string]any{
		"target_community_id": target.ID,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestShareRecipe_CopiesTagsPendingInTarget(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	source := ts.createCommunity(t, token, "Soup Club")
	target := ts.createCommunity(t, token, "Baking Guild")

	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": source.ID,
	})
	ts.attachTag(t, token, recipe.ID, "Umami")

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/share", bearer(token), map[string]any{
		"target_community_id": target.ID,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[RecipeResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	resp = ts.api.Get("/api/v1/recipes/"+envelope.Data.ID, bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var detail testEnvelope[RecipeDetailResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &detail))
	require.Len(t, detail.Data.Tags, 1)

	// The name re-resolves against the target community and waits for its
	// moderators.
	assert.Equal(t, "Umami", detail.Data.Tags[0].Name)
	assert.Equal(t, "COMMUNITY", detail.Data.Tags[0].Scope)
	assert.Equal(t, "PENDING", detail.Data.Tags[0].Status)
	assert.Equal(t, target.ID, detail.Data.Tags[0].CommunityID)
}
