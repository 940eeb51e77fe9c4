package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPersonal(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	recipe := ts.createRecipe(t, token, map[string]any{
		"title":    "Roasted Tomato Soup",
		"steps":    []string{"Roast tomatoes", "Blend with stock"},
		"servings": 4,
	})
	ts.createRecipe(t, token, map[string]any{
		"title":    "Banana Bread",
		"steps":    []string{"Mash bananas", "Bake"},
		"servings": 8,
	})

	resp := ts.api.Get("/api/v1/search/recipes?q=tomato", bearer(token))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[SearchResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.Equal(t, "tomato", envelope.Data.Query)
	require.Len(t, envelope.Data.Hits, 1)
	assert.Equal(t, recipe.ID, envelope.Data.Hits[0].ID)
	assert.Equal(t, "Roasted Tomato Soup", envelope.Data.Hits[0].Title)
}

func TestSearchPersonal_ScopedToCaller(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rootToken, _ := ts.setupRootUser(t)
	ts.createRecipe(t, rootToken, map[string]any{
		"title":    "Roasted Tomato Soup",
		"steps":    []string{"Roast tomatoes"},
		"servings": 4,
	})

	otherToken, _ := ts.registerUser(t, "Other", "other@example.com")

	resp := ts.api.Get("/api/v1/search/recipes?q=tomato", bearer(otherToken))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[SearchResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data.Hits)
}

func TestSearchPersonal_MissingQuery(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)

	resp := ts.api.Get("/api/v1/search/recipes", bearer(token))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestSearchCommunity(t *testing.T) {
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

	resp := ts.api.Get("/api/v1/communities/"+community.ID+"/search/recipes?q=miso", bearer(token))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[SearchResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	require.Len(t, envelope.Data.Hits, 1)
	assert.Equal(t, recipe.ID, envelope.Data.Hits[0].ID)
	assert.Equal(t, community.ID, envelope.Data.Hits[0].CommunityID)
}

func TestSearchCommunity_NonMember(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rootToken, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, rootToken, "Soup Club")

	otherToken, _ := ts.registerUser(t, "Outsider", "outsider@example.com")

	resp := ts.api.Get("/api/v1/communities/"+community.ID+"/search/recipes?q=miso", bearer(otherToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestSearchCommunity_MatchesIngredients(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	token, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, token, "Soup Club")

	recipe := ts.createRecipe(t, token, map[string]any{
		"title":        "Weeknight Noodles",
		"steps":        []string{"Boil noodles"},
		"servings":     2,
		"community_id": community.ID,
		"ingredients": []map[string]any{
			{"name": "Shiitake mushrooms", "quantity": 200, "unit": "g"},
		},
	})

	resp := ts.api.Get("/api/v1/communities/"+community.ID+"/search/recipes?q=shiitake", bearer(token))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[SearchResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	require.Len(t, envelope.Data.Hits, 1)
	assert.Equal(t, recipe.ID, envelope.Data.Hits[0].ID)
}
