package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) attachTag(t *testing.T, token, recipeID, name string) TagResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/recipes/"+recipeID+"/tags", bearer(token), map[string]any{
		"name": name,
	})
	require.Equal(t, http.StatusOK, resp.Code, "attach tag failed: %s", resp.Body.String())

	var envelope testEnvelope[TagResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestAttachTag_PersonalRecipeCreatesGlobalApproved(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, userID := ts.setupRootUser(t)
	recipe := ts.createRecipe(t, token, map[string]any{
		"title":    "Tomato Soup",
		"steps":    []string{"Roast tomatoes"},
		"servings": 4,
	})

	tag := ts.attachTag(t, token, recipe.ID, "Comfort Food")

	assert.NotEmpty(t, tag.ID)
	assert.Equal(t, "Comfort Food", tag.Name)
	assert.Equal(t, "comfort-food", tag.Slug)
	assert.Equal(t, "GLOBAL", tag.Scope)
	assert.Equal(t, "APPROVED", tag.Status)
	assert.Equal(t, userID, tag.CreatedBy)
}

func TestAttachTag_ReusesExistingGlobalTag(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	first := ts.createRecipe(t, token, map[string]any{
		"title":    "Tomato Soup",
		"steps":    []string{"Roast tomatoes"},
		"servings": 4,
	})
	second := ts.createRecipe(t, token, map[string]any{
		"title":    "Minestrone",
		"steps":    []string{"Simmer vegetables"},
		"servings": 4,
	})

	tagA := ts.attachTag(t, token, first.ID, "Soup")
	tagB := ts.attachTag(t, token, second.ID, "soup")

	assert.Equal(t, tagA.ID, tagB.ID, "same normalized name resolves to the same tag")
}

func TestAttachTag_OnlyCreator(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rootToken, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, rootToken, "Soup Club")

	memberToken, _ := ts.registerUser(t, "Member", "member@example.com")
	ts.joinCommunity(t, rootToken, memberToken, "member@example.com", community.ID)

	recipe := ts.createRecipe(t, rootToken, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": community.ID,
	})

	resp := ts.api.Post("/api/v1/recipes/"+recipe.ID+"/tags", bearer(memberToken), map[string]any{
		"name": "Umami",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAttachTag_CommunityRecipePendingModeration(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, token, "Soup Club")

	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": community.ID,
	})

	tag := ts.attachTag(t, token, recipe.ID, "Umami")

	assert.Equal(t, "COMMUNITY", tag.Scope)
	assert.Equal(t, "PENDING", tag.Status)
	assert.Equal(t, community.ID, tag.CommunityID)
}

func TestApproveTag(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, token, "Soup Club")
	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": community.ID,
	})
	tag := ts.attachTag(t, token, recipe.ID, "Umami")

	resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/approve", bearer(token))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[TagResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "APPROVED", envelope.Data.Status)

	// Approving twice is rejected.
	resp = ts.api.Post("/api/v1/tags/"+tag.ID+"/approve", bearer(token))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRejectTag_RemovesTag(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, token, "Soup Club")
	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": community.ID,
	})
	tag := ts.attachTag(t, token, recipe.ID, "Umami")

	resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/reject", bearer(token))
	assert.Equal(t, http.StatusOK, resp.Code)

	// The tag row is gone along with its attachments.
	resp = ts.api.Get("/api/v1/communities/"+community.ID+"/tags", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[struct {
		Tags []TagResponse `json:"tags"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data.Tags)
}

func TestDecideTag_RequiresModerator(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rootToken, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, rootToken, "Soup Club")

	memberToken, _ := ts.registerUser(t, "Member", "member@example.com")
	ts.joinCommunity(t, rootToken, memberToken, "member@example.com", community.ID)

	recipe := ts.createRecipe(t, rootToken, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": community.ID,
	})
	tag := ts.attachTag(t, rootToken, recipe.ID, "Umami")

	resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/approve", bearer(memberToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestListGlobalTags(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	recipe := ts.createRecipe(t, token, map[string]any{
		"title":    "Tomato Soup",
		"steps":    []string{"Roast tomatoes"},
		"servings": 4,
		"tags":     []string{"soup", "vegetarian"},
	})
	_ = recipe

	resp := ts.api.Get("/api/v1/tags", bearer(token))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[struct {
		Tags []TagResponse `json:"tags"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Tags, 2)
}

func TestListCommunityTags_StatusFilter(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, token, "Soup Club")
	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": community.ID,
	})

	umami := ts.attachTag(t, token, recipe.ID, "Umami")
	ts.attachTag(t, token, recipe.ID, "Quick")

	resp := ts.api.Post("/api/v1/tags/"+umami.ID+"/approve", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/communities/"+community.ID+"/tags?status=PENDING", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[struct {
		Tags []TagResponse `json:"tags"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Tags, 1)
	assert.Equal(t, "Quick", envelope.Data.Tags[0].Name)
}

func TestDeleteTag(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, token, "Soup Club")
	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi"},
		"servings":     2,
		"community_id": community.ID,
	})
	tag := ts.attachTag(t, token, recipe.ID, "Umami")

	resp := ts.api.Delete("/api/v1/tags/"+tag.ID, bearer(token))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/communities/"+community.ID+"/tags", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[struct {
		Tags []TagResponse `json:"tags"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data.Tags)
}
