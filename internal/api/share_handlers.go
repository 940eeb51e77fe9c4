package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/service"
)

func (s *Server) registerShareRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "shareRecipe",
		Method:      http.MethodPost,
		Path:        "/api/v1/recipes/{id}/share",
		Summary:     "Share recipe",
		Description: "Forks a community recipe into another community the caller belongs to",
		Tags:        []string{"Sharing"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleShareRecipe)
}

// === DTOs ===

// ShareRequest is the request body for sharing a recipe.
type ShareRequest struct {
	TargetCommunityID string `json:"target_community_id" validate:"required" doc:"Community to share the recipe into"`
}

// ShareInput wraps the share request for Huma.
type ShareInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Source recipe ID"`
	Body          ShareRequest
}

// === Handlers ===

func (s *Server) handleShareRecipe(ctx context.Context, input *ShareInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipe, err := s.services.Share.Share(ctx, userID, input.ID, service.ShareRequest{
		TargetCommunityID: input.Body.TargetCommunityID,
	})
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeResponse(recipe)}, nil
}
