package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// proposalFixture is a community with a recipe owned by the root user and a
// second member who can file proposals against it.
type proposalFixture struct {
	rootToken   string
	memberToken string
	memberID    string
	communityID string
	recipeID    string
}

func setupProposalFixture(t *testing.T, ts *testServer) proposalFixture {
	t.Helper()

	rootToken, _ := ts.setupRootUser(t)
	community := ts.createCommunity(t, rootToken, "Soup Club")

	memberToken, memberID := ts.registerUser(t, "Member", "member@example.com")
	ts.joinCommunity(t, rootToken, memberToken, "member@example.com", community.ID)

	recipe := ts.createRecipe(t, rootToken, map[string]any{
		"title":        "Miso Soup",
		"steps":        []string{"Simmer dashi", "Whisk in miso"},
		"servings":     2,
		"community_id": community.ID,
	})

	return proposalFixture{
		rootToken:   rootToken,
		memberToken: memberToken,
		memberID:    memberID,
		communityID: community.ID,
		recipeID:    recipe.ID,
	}
}

func (ts *testServer) fileProposal(t *testing.T, fx proposalFixture, title string) ProposalResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/recipes/"+fx.recipeID+"/proposals", bearer(fx.memberToken), map[string]any{
		"title":    title,
		"steps":    []string{"Simmer dashi", "Whisk in miso", "Add tofu"},
		"servings": 2,
	})
	require.Equal(t, http.StatusOK, resp.Code, "create proposal failed: %s", resp.Body.String())

	var envelope testEnvelope[ProposalResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestCreateProposal(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)

	proposal := ts.fileProposal(t, fx, "Miso Soup with Tofu")

	assert.NotEmpty(t, proposal.ID)
	assert.Equal(t, fx.recipeID, proposal.RecipeID)
	assert.Equal(t, fx.memberID, proposal.ProposerID)
	assert.Equal(t, "PENDING", proposal.Status)
	assert.Equal(t, "Miso Soup with Tofu", proposal.Content.Title)
	assert.Nil(t, proposal.DecidedAt)
}

func TestCreateProposal_CreatorEditsDirectly(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)

	resp := ts.api.Post("/api/v1/recipes/"+fx.recipeID+"/proposals", bearer(fx.rootToken), map[string]any{
		"title":    "My Own Change",
		"steps":    []string{"Just edit"},
		"servings": 2,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateProposal_PersonalRecipeRejected(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)

	personal := ts.createRecipe(t, fx.memberToken, map[string]any{
		"title":    "Private Stew",
		"steps":    []string{"Stew"},
		"servings": 2,
	})

	resp := ts.api.Post("/api/v1/recipes/"+personal.ID+"/proposals", bearer(fx.rootToken), map[string]any{
		"title":    "Change",
		"steps":    []string{"Stew differently"},
		"servings": 2,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListProposals(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)
	ts.fileProposal(t, fx, "Variation A")

	resp := ts.api.Get("/api/v1/recipes/"+fx.recipeID+"/proposals", bearer(fx.rootToken))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[struct {
		Proposals []ProposalResponse `json:"proposals"`
	}]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Proposals, 1)
}

func TestAcceptProposal(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)
	proposal := ts.fileProposal(t, fx, "Miso Soup with Tofu")

	resp := ts.api.Post("/api/v1/proposals/"+proposal.ID+"/accept", bearer(fx.rootToken))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[ProposalResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	assert.Equal(t, "ACCEPTED", envelope.Data.Status)
	assert.NotNil(t, envelope.Data.DecidedAt)

	// The recipe now carries the proposed content.
	resp = ts.api.Get("/api/v1/recipes/"+fx.recipeID, bearer(fx.rootToken))
	require.Equal(t, http.StatusOK, resp.Code)

	var detail testEnvelope[RecipeDetailResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &detail))
	assert.Equal(t, "Miso Soup with Tofu", detail.Data.Recipe.Title)
	assert.Len(t, detail.Data.Recipe.Steps, 3)
}

func TestAcceptProposal_OnlyCreatorDecides(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)
	proposal := ts.fileProposal(t, fx, "Miso Soup with Tofu")

	resp := ts.api.Post("/api/v1/proposals/"+proposal.ID+"/accept", bearer(fx.memberToken))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAcceptProposal_AlreadyDecided(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)
	proposal := ts.fileProposal(t, fx, "Miso Soup with Tofu")

	resp := ts.api.Post("/api/v1/proposals/"+proposal.ID+"/accept", bearer(fx.rootToken))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/proposals/"+proposal.ID+"/accept", bearer(fx.rootToken))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAcceptProposal_StaleAfterEdit(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)
	proposal := ts.fileProposal(t, fx, "Miso Soup with Tofu")

	// The creator edits the recipe after the proposal was filed.
	resp := ts.api.Put("/api/v1/recipes/"+fx.recipeID, bearer(fx.rootToken), map[string]any{
		"title":    "Reworked Miso Soup",
		"steps":    []string{"Entirely new method"},
		"servings": 4,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/proposals/"+proposal.ID+"/accept", bearer(fx.rootToken))
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRejectProposal_ForgesVariant(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)
	proposal := ts.fileProposal(t, fx, "Miso Soup with Tofu")

	resp := ts.api.Post("/api/v1/proposals/"+proposal.ID+"/reject", bearer(fx.rootToken))
	assert.Equal(t, http.StatusOK, resp.Code)

	var envelope testEnvelope[RejectProposalResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))

	assert.Equal(t, "REJECTED", envelope.Data.Proposal.Status)

	variant := envelope.Data.Variant
	assert.True(t, variant.IsVariant)
	assert.Equal(t, fx.memberID, variant.CreatorID, "the proposer owns the forged variant")
	assert.Equal(t, fx.recipeID, variant.OriginRecipeID)
	assert.Equal(t, "Miso Soup with Tofu", variant.Title)

	// The variant appears in the origin's variant list.
	resp = ts.api.Get("/api/v1/recipes/"+fx.recipeID+"/variants", bearer(fx.rootToken))
	require.Equal(t, http.StatusOK, resp.Code)

	var variants testEnvelope[RecipeListResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &variants))
	require.Len(t, variants.Data.Recipes, 1)
	assert.Equal(t, variant.ID, variants.Data.Recipes[0].ID)
}

func TestGetProposal_NotFound(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	fx := setupProposalFixture(t, ts)

	resp := ts.api.Get("/api/v1/proposals/prp_missing", bearer(fx.rootToken))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
