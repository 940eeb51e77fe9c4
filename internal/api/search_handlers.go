package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchPersonalRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/recipes",
		Summary:     "Search personal recipes",
		Description: "Full-text search over the caller's personal recipes",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchPersonal)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchCommunityRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/communities/{id}/search/recipes",
		Summary:     "Search community recipes",
		Description: "Full-text search over one community's recipes. Members only.",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchCommunity)
}

// === DTOs ===

// SearchPersonalInput carries the query for a personal search.
type SearchPersonalInput struct {
	Authorization string `header:"Authorization"`
	Query         string `query:"q" required:"true" doc:"Search query"`
	Limit         int    `query:"limit" doc:"Maximum hits to return"`
	Offset        int    `query:"offset" doc:"Number of hits to skip"`
}

// SearchCommunityInput carries the query for a community search.
type SearchCommunityInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
	Query         string `query:"q" required:"true" doc:"Search query"`
	Limit         int    `query:"limit" doc:"Maximum hits to return"`
	Offset        int    `query:"offset" doc:"Number of hits to skip"`
}

// SearchHitResponse is a single matching recipe.
type SearchHitResponse struct {
	ID          string            `json:"id" doc:"Recipe ID"`
	Score       float64           `json:"score" doc:"Relevance score"`
	Title       string            `json:"title" doc:"Recipe title"`
	CommunityID string            `json:"community_id,omitempty" doc:"Owning community"`
	IsVariant   bool              `json:"is_variant" doc:"Whether the recipe is a forged variant"`
	Highlights  map[string]string `json:"highlights,omitempty" doc:"Highlighted matching fragments by field"`
}

// SearchResponse contains search results in API responses.
type SearchResponse struct {
	Query  string              `json:"query" doc:"The executed query"`
	Total  uint64              `json:"total" doc:"Total matching recipes"`
	TookMs int64               `json:"took_ms" doc:"Query execution time in milliseconds"`
	Hits   []SearchHitResponse `json:"hits" doc:"Matching recipes"`
}

// SearchOutput wraps a search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearchPersonal(ctx context.Context, input *SearchPersonalInput) (*SearchOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Search.SearchPersonal(ctx, userID, input.Query, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return &SearchOutput{Body: mapSearchResponse(result)}, nil
}

func (s *Server) handleSearchCommunity(ctx context.Context, input *SearchCommunityInput) (*SearchOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Search.SearchCommunity(ctx, userID, input.ID, input.Query, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return &SearchOutput{Body: mapSearchResponse(result)}, nil
}

// === Helpers ===

func mapSearchResponse(result *search.Result) SearchResponse {
	resp := SearchResponse{
		Query:  result.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResponse, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		resp.Hits = append(resp.Hits, SearchHitResponse{
			ID:          hit.ID,
			Score:       hit.Score,
			Title:       hit.Title,
			CommunityID: hit.CommunityID,
			IsVariant:   hit.IsVariant,
			Highlights:  hit.Highlights,
		})
	}
	return resp
}
