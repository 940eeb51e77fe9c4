package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/service"
	"github.com/simmerapp/simmer-server/internal/store"
)

func (s *Server) registerRecipeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createRecipe",
		Method:      http.MethodPost,
		Path:        "/api/v1/recipes",
		Summary:     "Create recipe",
		Description: "Authors a recipe. With a community_id the recipe is written as a personal copy plus a linked community copy.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPersonalRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes",
		Summary:     "List personal recipes",
		Description: "Lists the caller's personal recipes",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPersonalRecipes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecipe",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Get recipe",
		Description: "Returns one recipe with its ingredients and tags",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRecipe",
		Method:      http.MethodPut,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Update recipe",
		Description: "Replaces a recipe's content. Creator only; other community members file proposals instead.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecipe",
		Method:      http.MethodDelete,
		Path:        "/api/v1/recipes/{id}",
		Summary:     "Delete recipe",
		Description: "Soft deletes a recipe the caller owns",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteRecipe)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCommunityRecipes",
		Method:      http.MethodGet,
		Path:        "/api/v1/communities/{id}/recipes",
		Summary:     "List community recipes",
		Description: "Lists a community's recipes. Members only.",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCommunityRecipes)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRecipeVariants",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}/variants",
		Summary:     "List variants",
		Description: "Lists variants forged from a recipe",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListRecipeVariants)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecipeAnalytics",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}/analytics",
		Summary:     "Recipe analytics",
		Description: "Returns share and fork counters for a recipe",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecipeAnalytics)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecipeActivity",
		Method:      http.MethodGet,
		Path:        "/api/v1/recipes/{id}/activity",
		Summary:     "Recipe activity",
		Description: "Returns the audit log for a recipe, newest first",
		Tags:        []string{"Recipes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecipeActivity)
}

// === DTOs ===

// IngredientRequest is one ingredient line in recipe payloads.
type IngredientRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=100" doc:"Ingredient name"`
	Quantity float64 `json:"quantity" validate:"gte=0" doc:"Amount of the ingredient"`
	Unit     string  `json:"unit,omitempty" validate:"omitempty,max=30" doc:"Unit of measure"`
}

// CreateRecipeRequest is the request body for recipe creation.
type CreateRecipeRequest struct {
	Title       string              `json:"title" validate:"required,min=1,max=200" doc:"Recipe title"`
	Steps       []string            `json:"steps" validate:"required,min=1,dive,required" doc:"Preparation steps in order"`
	Servings    int                 `json:"servings" validate:"required,gt=0" doc:"Number of servings"`
	PrepMinutes int                 `json:"prep_minutes,omitempty" validate:"gte=0" doc:"Preparation time in minutes"`
	CookMinutes int                 `json:"cook_minutes,omitempty" validate:"gte=0" doc:"Cooking time in minutes"`
	RestMinutes int                 `json:"rest_minutes,omitempty" validate:"gte=0" doc:"Resting time in minutes"`
	Ingredients []IngredientRequest `json:"ingredients,omitempty" doc:"Ingredient lines"`
	CommunityID string              `json:"community_id,omitempty" doc:"Community to author the recipe into"`
	Tags        []string            `json:"tags,omitempty" validate:"omitempty,max=10,dive,required,max=50" doc:"Tag names to attach"`
}

// CreateRecipeInput wraps the create request for Huma.
type CreateRecipeInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateRecipeRequest
}

// UpdateRecipeRequest is the request body for recipe updates.
type UpdateRecipeRequest struct {
	Title       string              `json:"title" validate:"required,min=1,max=200" doc:"Recipe title"`
	Steps       []string            `json:"steps" validate:"required,min=1,dive,required" doc:"Preparation steps in order"`
	Servings    int                 `json:"servings" validate:"required,gt=0" doc:"Number of servings"`
	PrepMinutes int                 `json:"prep_minutes,omitempty" validate:"gte=0" doc:"Preparation time in minutes"`
	CookMinutes int                 `json:"cook_minutes,omitempty" validate:"gte=0" doc:"Cooking time in minutes"`
	RestMinutes int                 `json:"rest_minutes,omitempty" validate:"gte=0" doc:"Resting time in minutes"`
	Ingredients []IngredientRequest `json:"ingredients,omitempty" doc:"Replacement ingredient lines; omit to keep current"`
}

// UpdateRecipeInput wraps the update request for Huma.
type UpdateRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
	Body          UpdateRecipeRequest
}

// RecipeResponse contains recipe information in API responses.
type RecipeResponse struct {
	ID                    string    `json:"id" doc:"Recipe ID"`
	Title                 string    `json:"title" doc:"Recipe title"`
	Steps                 []string  `json:"steps" doc:"Preparation steps in order"`
	Servings              int       `json:"servings" doc:"Number of servings"`
	PrepMinutes           int       `json:"prep_minutes" doc:"Preparation time in minutes"`
	CookMinutes           int       `json:"cook_minutes" doc:"Cooking time in minutes"`
	RestMinutes           int       `json:"rest_minutes" doc:"Resting time in minutes"`
	CreatorID             string    `json:"creator_id" doc:"Authoring user ID"`
	CommunityID           string    `json:"community_id,omitempty" doc:"Owning community, empty for personal recipes"`
	OriginRecipeID        string    `json:"origin_recipe_id,omitempty" doc:"Recipe this copy derives from"`
	IsVariant             bool      `json:"is_variant" doc:"Whether this recipe is a forged variant"`
	SharedFromCommunityID string    `json:"shared_from_community_id,omitempty" doc:"Community the recipe was shared from"`
	CreatedAt             time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt             time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// IngredientResponse is one resolved ingredient line.
type IngredientResponse struct {
	Name     string  `json:"name" doc:"Ingredient name"`
	Quantity float64 `json:"quantity" doc:"Amount of the ingredient"`
	Unit     string  `json:"unit,omitempty" doc:"Unit of measure"`
	Position int     `json:"position" doc:"Order within the recipe"`
}

// RecipeDetailResponse is a recipe with ingredients and tags resolved.
type RecipeDetailResponse struct {
	Recipe      RecipeResponse       `json:"recipe" doc:"The recipe"`
	Ingredients []IngredientResponse `json:"ingredients" doc:"Ingredient lines in order"`
	Tags        []TagResponse        `json:"tags" doc:"Tags attached to the recipe"`
}

// RecipeOutput wraps a single recipe for Huma.
type RecipeOutput struct {
	Body RecipeResponse
}

// RecipeDetailOutput wraps a recipe detail for Huma.
type RecipeDetailOutput struct {
	Body RecipeDetailResponse
}

// RecipeListResponse is a paginated recipe list.
type RecipeListResponse struct {
	Recipes []RecipeResponse `json:"recipes" doc:"Recipes in this page"`
	Total   int              `json:"total" doc:"Total matching recipes"`
	HasMore bool             `json:"has_more" doc:"Whether more pages exist"`
}

// RecipeListOutput wraps a recipe list for Huma.
type RecipeListOutput struct {
	Body RecipeListResponse
}

// ListPersonalRecipesInput carries pagination for the personal list.
type ListPersonalRecipesInput struct {
	Authorization string `header:"Authorization"`
	Limit         int    `query:"limit" doc:"Maximum recipes to return"`
	Offset        int    `query:"offset" doc:"Number of recipes to skip"`
}

// GetRecipeInput identifies one recipe.
type GetRecipeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
}

// ListCommunityRecipesInput carries pagination for a community list.
type ListCommunityRecipesInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
	Limit         int    `query:"limit" doc:"Maximum recipes to return"`
	Offset        int    `query:"offset" doc:"Number of recipes to skip"`
}

// ListVariantsInput carries pagination for a variant list.
type ListVariantsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Origin recipe ID"`
	Limit         int    `query:"limit" doc:"Maximum recipes to return"`
	Offset        int    `query:"offset" doc:"Number of recipes to skip"`
}

// AnalyticsResponse contains share and fork counters for a recipe.
type AnalyticsResponse struct {
	RecipeID  string    `json:"recipe_id" doc:"Recipe ID"`
	Shares    int64     `json:"shares" doc:"Times the recipe was shared"`
	Forks     int64     `json:"forks" doc:"Variants forged from the recipe"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last counter update"`
}

// AnalyticsOutput wraps an analytics response for Huma.
type AnalyticsOutput struct {
	Body AnalyticsResponse
}

// ActivityResponse is one audit log entry for a recipe.
type ActivityResponse struct {
	ID        string    `json:"id" doc:"Activity ID"`
	RecipeID  string    `json:"recipe_id" doc:"Recipe ID"`
	ActorID   string    `json:"actor_id" doc:"User who caused the event"`
	Reason    string    `json:"reason" doc:"Event reason code"`
	Detail    string    `json:"detail,omitempty" doc:"Additional event detail"`
	CreatedAt time.Time `json:"created_at" doc:"Event timestamp"`
}

// ActivityListOutput wraps an activity list for Huma.
type ActivityListOutput struct {
	Body struct {
		Activity []ActivityResponse `json:"activity" doc:"Audit log entries, newest first"`
	}
}

// === Handlers ===

func (s *Server) handleCreateRecipe(ctx context.Context, input *CreateRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipe, err := s.services.Recipe.Create(ctx, userID, service.CreateRecipeRequest{
		Title:       input.Body.Title,
		Steps:       input.Body.Steps,
		Servings:    input.Body.Servings,
		PrepMinutes: input.Body.PrepMinutes,
		CookMinutes: input.Body.CookMinutes,
		RestMinutes: input.Body.RestMinutes,
		Ingredients: mapIngredientInputs(input.Body.Ingredients),
		CommunityID: input.Body.CommunityID,
		Tags:        input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &RecipeOutput{Body: mapRecipeResponse(recipe)}, nil
}

func (s *Server) handleListPersonalRecipes(ctx context.Context, input *ListPersonalRecipesInput) (*RecipeListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Recipe.ListPersonal(ctx, userID, pageParams(input.Limit, input.Offset))
	if err != nil {
		return nil, err
	}

	return &RecipeListOutput{Body: mapRecipeListResponse(result)}, nil
}

func (s *Server) handleGetRecipe(ctx context.Context, input *GetRecipeInput) (*RecipeDetailOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Recipe.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	resp := RecipeDetailResponse{
		Recipe:      mapRecipeResponse(detail.Recipe),
		Ingredients: make([]IngredientResponse, 0, len(detail.Ingredients)),
		Tags:        make([]TagResponse, 0, len(detail.Tags)),
	}
	for _, ing := range detail.Ingredients {
		resp.Ingredients = append(resp.Ingredients, IngredientResponse{
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
			Position: ing.Position,
		})
	}
	for _, tag := range detail.Tags {
		resp.Tags = append(resp.Tags, mapTagResponse(tag))
	}

	return &RecipeDetailOutput{Body: resp}, nil
}

func (s *Server) handleUpdateRecipe(ctx context.Context, input *UpdateRecipeInput) (*RecipeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	recipe, err := s.services.Recipe.Update(ctx, userID, input.ID, service.UpdateRecipeRequest{
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

	return &RecipeOutput{Body: mapRecipeResponse(recipe)}, nil
}

func (s *Server) handleDeleteRecipe(ctx context.Context, input *GetRecipeInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Recipe.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Recipe deleted"}}, nil
}

func (s *Server) handleListCommunityRecipes(ctx context.Context, input *ListCommunityRecipesInput) (*RecipeListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Recipe.ListCommunity(ctx, userID, input.ID, pageParams(input.Limit, input.Offset))
	if err != nil {
		return nil, err
	}

	return &RecipeListOutput{Body: mapRecipeListResponse(result)}, nil
}

func (s *Server) handleListRecipeVariants(ctx context.Context, input *ListVariantsInput) (*RecipeListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Recipe.ListVariants(ctx, userID, input.ID, pageParams(input.Limit, input.Offset))
	if err != nil {
		return nil, err
	}

	return &RecipeListOutput{Body: mapRecipeListResponse(result)}, nil
}

func (s *Server) handleRecipeAnalytics(ctx context.Context, input *GetRecipeInput) (*AnalyticsOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	analytics, err := s.services.Recipe.Analytics(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &AnalyticsOutput{
		Body: AnalyticsResponse{
			RecipeID:  analytics.RecipeID,
			Shares:    analytics.Shares,
			Forks:     analytics.Forks,
			UpdatedAt: analytics.UpdatedAt,
		},
	}, nil
}

func (s *Server) handleRecipeActivity(ctx context.Context, input *GetRecipeInput) (*ActivityListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Recipe.Activity(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &ActivityListOutput{}
	out.Body.Activity = make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		out.Body.Activity = append(out.Body.Activity, ActivityResponse{
			ID:        e.ID,
			RecipeID:  e.RecipeID,
			ActorID:   e.ActorID,
			Reason:    string(e.Reason),
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

// === Helpers ===

func mapIngredientInputs(ingredients []IngredientRequest) []service.IngredientInput {
	if ingredients == nil {
		return nil
	}
	out := make([]service.IngredientInput, len(ingredients))
	for i, ing := range ingredients {
		out[i] = service.IngredientInput{
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		}
	}
	return out
}

func mapRecipeResponse(r *domain.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:                    r.ID,
		Title:                 r.Title,
		Steps:                 r.Steps,
		Servings:              r.Servings,
		PrepMinutes:           r.PrepMinutes,
		CookMinutes:           r.CookMinutes,
		RestMinutes:           r.RestMinutes,
		CreatorID:             r.CreatorID,
		CommunityID:           r.CommunityID,
		OriginRecipeID:        r.OriginRecipeID,
		IsVariant:             r.IsVariant,
		SharedFromCommunityID: r.SharedFromCommunityID,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

func mapRecipeListResponse(result *store.PaginatedResult[*domain.Recipe]) RecipeListResponse {
	resp := RecipeListResponse{
		Recipes: make([]RecipeResponse, 0, len(result.Items)),
		Total:   result.Total,
		HasMore: result.HasMore,
	}
	for _, r := range result.Items {
		resp.Recipes = append(resp.Recipes, mapRecipeResponse(r))
	}
	return resp
}
