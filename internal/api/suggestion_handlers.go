package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/service"
)

func (s *Server) registerSuggestionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createSuggestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/recipes/{id}/suggestions",
		Summary:     "Suggest tag",
		Description: "Suggests a tag for a community recipe owned by another member",
		Tags:        []string{"Suggestions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateSuggestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSuggestions",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}/suggestions",
		Summary:     "List suggestions",
		Description: "Lists tag suggestions for a recipe",
		Tags:        []string{"Suggestions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSuggestions)

	huma.Register(s.api, huma.Operation{
		OperationID: "acceptSuggestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/suggestions/{id}/accept",
		Summary:     "Accept suggestion",
		Description: "Accepts a tag suggestion and attaches the tag. Recipe owner only.",
		Tags:        []string{"Suggestions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAcceptSuggestion)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectSuggestion",
		Method:      http.MethodPost,
		Path:        "/api/v1/suggestions/{id}/reject",
		Summary:     "Reject suggestion",
		Description: "Rejects a tag suggestion. Recipe owner only.",
		Tags:        []string{"Suggestions"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRejectSuggestion)
}

// === DTOs ===

// CreateSuggestionRequest is the request body for suggesting a tag.
type CreateSuggestionRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50" doc:"Suggested tag name"`
}

// CreateSuggestionInput wraps the create request for Huma.
type CreateSuggestionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
	Body          CreateSuggestionRequest
}

// SuggestionResponse contains tag suggestion information in API responses.
type SuggestionResponse struct {
	ID          string     `json:"id" doc:"Suggestion ID"`
	RecipeID    string     `json:"recipe_id" doc:"Target recipe ID"`
	SuggesterID string     `json:"suggester_id" doc:"Suggesting user ID"`
	TagName     string     `json:"tag_name" doc:"Suggested tag name"`
	TagSlug     string     `json:"tag_slug" doc:"URL-friendly suggested name"`
	Status      string     `json:"status" doc:"Suggestion status"`
	TagID       string     `json:"tag_id,omitempty" doc:"Tag attached on acceptance"`
	CreatedAt   time.Time  `json:"created_at" doc:"Creation timestamp"`
	DecidedAt   *time.Time `json:"decided_at,omitempty" doc:"When the suggestion was decided"`
}

// SuggestionOutput wraps a single suggestion for Huma.
type SuggestionOutput struct {
	Body SuggestionResponse
}

// SuggestionListOutput wraps a suggestion list for Huma.
type SuggestionListOutput struct {
	Body struct {
		Suggestions []SuggestionResponse `json:"suggestions" doc:"Tag suggestions for the recipe"`
	}
}

// SuggestionInput identifies one suggestion.
type SuggestionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Suggestion ID"`
}

// === Handlers ===

func (s *Server) handleCreateSuggestion(ctx context.Context, input *CreateSuggestionInput) (*SuggestionOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.services.Suggestion.Create(ctx, userID, input.ID, service.CreateSuggestionRequest{
		Name: input.Body.Name,
	})
	if err != nil {
		return nil, err
	}

	return &SuggestionOutput{Body: mapSuggestionResponse(suggestion)}, nil
}

func (s *Server) handleListSuggestions(ctx context.Context, input *GetRecipeInput) (*SuggestionListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.services.Suggestion.ListForRecipe(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &SuggestionListOutput{}
	out.Body.Suggestions = make([]SuggestionResponse, 0, len(suggestions))
	for _, sg := range suggestions {
		out.Body.Suggestions = append(out.Body.Suggestions, mapSuggestionResponse(sg))
	}
	return out, nil
}

func (s *Server) handleAcceptSuggestion(ctx context.Context, input *SuggestionInput) (*SuggestionOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.services.Suggestion.Accept(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &SuggestionOutput{Body: mapSuggestionResponse(suggestion)}, nil
}

func (s *Server) handleRejectSuggestion(ctx context.Context, input *SuggestionInput) (*SuggestionOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.services.Suggestion.Reject(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &SuggestionOutput{Body: mapSuggestionResponse(suggestion)}, nil
}

// === Helpers ===

func mapSuggestionResponse(sg *domain.TagSuggestion) SuggestionResponse {
	return SuggestionResponse{
		ID:          sg.ID,
		RecipeID:    sg.RecipeID,
		SuggesterID: sg.SuggesterID,
		TagName:     sg.TagName,
		TagSlug:     sg.TagSlug,
		Status:      string(sg.Status),
		TagID:       sg.TagID,
		CreatedAt:   sg.CreatedAt,
		DecidedAt:   sg.DecidedAt,
	}
}
