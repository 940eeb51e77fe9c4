package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/service"
)

func (s *Server) registerProposalRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createProposal",
		Method:      http.MethodPost,
		Path:        "/api/v1/recipes/{id}/proposals",
		Summary:     "Create proposal",
		Description: "Files an update proposal against a community recipe",
		Tags:        []string{"Proposals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateProposal)

	huma.Register(s.api, huma.Operation{
		OperationID: "listProposals",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}/proposals",
		Summary:     "List proposals",
		Description: "Lists proposals filed against a recipe",
		Tags:        []string{"Proposals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListProposals)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProposal",
		Method:      http.MethodGet,
		Path:        "/api/v1/proposals/{id}",
		Summary:     "Get proposal",
		Description: "Returns one proposal",
		Tags:        []string{"Proposals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProposal)

	huma.Register(s.api, huma.Operation{
		OperationID: "acceptProposal",
		Method:      http.MethodPost,
		Path:        "/api/v1/proposals/{id}/accept",
		Summary:     "Accept proposal",
		Description: "Applies a proposal to its target recipe. Recipe creator only.",
		Tags:        []string{"Proposals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAcceptProposal)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectProposal",
		Method:      http.MethodPost,
		Path:        "/api/v1/proposals/{id}/reject",
		Summary:     "Reject proposal",
		Description: "Rejects a proposal and forges it into a variant owned by the proposer. Recipe creator only.",
		Tags:        []string{"Proposals"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRejectProposal)
}

// === DTOs ===

// CreateProposalRequest is the request body for filing a proposal.
type CreateProposalRequest struct {
	Title       string              `json:"title" validate:"required,min=1,max=200" doc:"Proposed title"`
	Steps       []string            `json:"steps" validate:"required,min=1,dive,required" doc:"Proposed steps in order"`
	Servings    int                 `json:"servings" validate:"required,gt=0" doc:"Proposed servings"`
	PrepMinutes int                 `json:"prep_minutes,omitempty" validate:"gte=0" doc:"Proposed preparation time in minutes"`
	CookMinutes int                 `json:"cook_minutes,omitempty" validate:"gte=0" doc:"Proposed cooking time in minutes"`
	RestMinutes int                 `json:"rest_minutes,omitempty" validate:"gte=0" doc:"Proposed resting time in minutes"`
	Ingredients []IngredientRequest `json:"ingredients,omitempty" doc:"Proposed ingredient lines"`
}

// CreateProposalInput wraps the create request for Huma.
type CreateProposalInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Target recipe ID"`
	Body          CreateProposalRequest
}

// ProposalContentResponse is the full recipe content carried by a proposal.
type ProposalContentResponse struct {
	Title       string               `json:"title" doc:"Proposed title"`
	Steps       []string             `json:"steps" doc:"Proposed steps in order"`
	Servings    int                  `json:"servings" doc:"Proposed servings"`
	PrepMinutes int                  `json:"prep_minutes" doc:"Proposed preparation time in minutes"`
	CookMinutes int                  `json:"cook_minutes" doc:"Proposed cooking time in minutes"`
	RestMinutes int                  `json:"rest_minutes" doc:"Proposed resting time in minutes"`
	Ingredients []IngredientResponse `json:"ingredients,omitempty" doc:"Proposed ingredient lines"`
}

// ProposalResponse contains proposal information in API responses.
type ProposalResponse struct {
	ID         string                  `json:"id" doc:"Proposal ID"`
	RecipeID   string                  `json:"recipe_id" doc:"Target recipe ID"`
	ProposerID string                  `json:"proposer_id" doc:"Proposing user ID"`
	Content    ProposalContentResponse `json:"content" doc:"Proposed recipe content"`
	Status     string                  `json:"status" doc:"Proposal status (PENDING, ACCEPTED, or REJECTED)"`
	CreatedAt  time.Time               `json:"created_at" doc:"Creation timestamp"`
	DecidedAt  *time.Time              `json:"decided_at,omitempty" doc:"When the proposal was decided"`
}

// ProposalOutput wraps a single proposal for Huma.
type ProposalOutput struct {
	Body ProposalResponse
}

// ProposalListOutput wraps a proposal list for Huma.
type ProposalListOutput struct {
	Body struct {
		Proposals []ProposalResponse `json:"proposals" doc:"Proposals filed against the recipe"`
	}
}

// GetProposalInput identifies one proposal.
type GetProposalInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Proposal ID"`
}

// RejectProposalResponse pairs the rejected proposal with the forged variant.
type RejectProposalResponse struct {
	Proposal ProposalResponse `json:"proposal" doc:"The rejected proposal"`
	Variant  RecipeResponse   `json:"variant" doc:"Variant forged from the proposal, owned by the proposer"`
}

// RejectProposalOutput wraps a reject response for Huma.
type RejectProposalOutput struct {
	Body RejectProposalResponse
}

// === Handlers ===

func (s *Server) handleCreateProposal(ctx context.Context, input *CreateProposalInput) (*ProposalOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	proposal, err := s.services.Proposal.Create(ctx, userID, input.ID, service.CreateProposalRequest{
		Title:       input.Body.Title,
		Steps:       input.Body.Steps,
		Servings:    input.Body.Servings,
		PrepMinutes: input.Body.PrepMinutes,
		CookMinutes: input.Body.CookMinutes,
		RestMinutes: input.Body.RestMinutes,
		Ingredients: mapIngredientInputs(input.Body.Ingredients),
	})
	if err != nil {
		return nil, err
	}

	return &ProposalOutput{Body: mapProposalResponse(proposal)}, nil
}

func (s *Server) handleListProposals(ctx context.Context, input *GetRecipeInput) (*ProposalListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	proposals, err := s.services.Proposal.ListForRecipe(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ProposalListOutput{}
	out.Body.Proposals = make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out.Body.Proposals = append(out.Body.Proposals, mapProposalResponse(p))
	}
	return out, nil
}

func (s *Server) handleGetProposal(ctx context.Context, input *GetProposalInput) (*ProposalOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	proposal, err := s.services.Proposal.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &ProposalOutput{Body: mapProposalResponse(proposal)}, nil
}

func (s *Server) handleAcceptProposal(ctx context.Context, input *GetProposalInput) (*ProposalOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	proposal, err := s.services.Proposal.Accept(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &ProposalOutput{Body: mapProposalResponse(proposal)}, nil
}

func (s *Server) handleRejectProposal(ctx context.Context, input *GetProposalInput) (*RejectProposalOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Proposal.Reject(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &RejectProposalOutput{
		Body: RejectProposalResponse{
			Proposal: mapProposalResponse(result.Proposal),
			Variant:  mapRecipeResponse(result.Variant),
		},
	}, nil
}

// === Helpers ===

func mapProposalResponse(p *domain.Proposal) ProposalResponse {
	content := ProposalContentResponse{
		Title:       p.Content.Title,
		Steps:       p.Content.Steps,
		Servings:    p.Content.Servings,
		PrepMinutes: p.Content.PrepMinutes,
		CookMinutes: p.Content.CookMinutes,
		RestMinutes: p.Content.RestMinutes,
	}
	if len(p.Content.Ingredients) > 0 {
		content.Ingredients = make([]IngredientResponse, 0, len(p.Content.Ingredients))
		for _, ing := range p.Content.Ingredients {
			content.Ingredients = append(content.Ingredients, IngredientResponse{
				Name:     ing.Name,
				Quantity: ing.Quantity,
				Unit:     ing.Unit,
				Position: ing.Position,
			})
		}
	}

	return ProposalResponse{
		ID:         p.ID,
		RecipeID:   p.RecipeID,
		ProposerID: p.ProposerID,
		Content:    content,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		DecidedAt:  p.DecidedAt,
	}
}
