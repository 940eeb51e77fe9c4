package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
	"github.com/simmerapp/simmer-server/internal/id"
	"github.com/simmerapp/simmer-server/internal/search"
	"github.com/simmerapp/simmer-server/internal/store"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// RecipeService manages recipe copies: personal, community, and the
// dual-write pair created when a recipe is authored into a community.
type RecipeService struct {
	store     store.Store
	index     *search.Index
	validator *validation.Validator
	logger    *slog.Logger
}

// NewRecipeService creates a new recipe service.
func NewRecipeService(store store.Store, index *search.Index, validator *validation.Validator, logger *slog.Logger) *RecipeService {
	return &RecipeService{
		store:     store,
		index:     index,
		validator: validator,
		logger:    logger,
	}
}

// IngredientInput is one ingredient line as submitted by a client.
type IngredientInput struct {
	Name     string  `json:"name"     validate:"required,min=1,max=100"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit"     validate:"max=30"`
}

// CreateRecipeRequest authors a new recipe. When CommunityID is set the
// recipe is written twice: a personal copy plus a community copy linked to it.
type CreateRecipeRequest struct {
	Title       string            `json:"title"        validate:"required,min=1,max=200"`
	Steps       []string          `json:"steps"        validate:"required,min=1,dive,required"`
	Servings    int               `json:"servings"     validate:"required,gt=0"`
	PrepMinutes int               `json:"prep_minutes" validate:"gte=0"`
	CookMinutes int               `json:"cook_minutes" validate:"gte=0"`
	RestMinutes int               `json:"rest_minutes" validate:"gte=0"`
	Ingredients []IngredientInput `json:"ingredients,omitempty" validate:"omitempty,dive"`
	CommunityID string            `json:"community_id,omitempty"`
	Tags        []string          `json:"tags,omitempty" validate:"omitempty,max=10,dive,required,max=50"`
}

// UpdateRecipeRequest replaces a recipe's content. A nil Ingredients slice
// leaves the ingredient list untouched.
type UpdateRecipeRequest struct {
	Title       string            `json:"title"        validate:"required,min=1,max=200"`
	Steps       []string          `json:"steps"        validate:"required,min=1,dive,required"`
	Servings    int               `json:"servings"     validate:"required,gt=0"`
	PrepMinutes int               `json:"prep_minutes" validate:"gte=0"`
	CookMinutes int               `json:"cook_minutes" validate:"gte=0"`
	RestMinutes int               `json:"rest_minutes" validate:"gte=0"`
	Ingredients []IngredientInput `json:"ingredients,omitempty" validate:"omitempty,dive"`
}

// RecipeDetail is a recipe with its ingredient list resolved.
type RecipeDetail struct {
	Recipe      *domain.Recipe            `json:"recipe"`
	Ingredients []domain.RecipeIngredient `json:"ingredients"`
	Tags        []*domain.Tag             `json:"tags"`
}

func toRecipeIngredients(inputs []IngredientInput) []domain.RecipeIngredient {
	if inputs == nil {
		return nil
	}
	out := make([]domain.RecipeIngredient, len(inputs))
	for i, in := range inputs {
		out[i] = domain.RecipeIngredient{
			Name:     in.Name,
			Quantity: in.Quantity,
			Unit:     in.Unit,
			Position: i,
		}
	}
	return out
}

// Create authors a recipe. Personal recipes are a single copy; community
// recipes are a dual write of a personal origin plus a linked community copy.
func (s *RecipeService) Create(ctx context.Context, actorID string, req CreateRecipeRequest) (*domain.Recipe, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.CommunityID != "" {
		if _, err := s.store.GetMembership(ctx, req.CommunityID, actorID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domainerrors.Forbidden("not a member of this community")
			}
			return nil, fmt.Errorf("get membership: %w", err)
		}
	}

	personalID, err := id.Generate("rcp")
	if err != nil {
		return nil, fmt.Errorf("generate recipe ID: %w", err)
	}

	personal := &domain.Recipe{
		Title:       req.Title,
		Steps:       req.Steps,
		Servings:    req.Servings,
		PrepMinutes: req.PrepMinutes,
		CookMinutes: req.CookMinutes,
		RestMinutes: req.RestMinutes,
		CreatorID:   actorID,
	}
	personal.ID = personalID
	personal.InitTimestamps()

	ingredients := toRecipeIngredients(req.Ingredients)

	created := personal
	if req.CommunityID == "" {
		if err := s.store.CreateRecipe(ctx, personal, ingredients); err != nil {
			return nil, fmt.Errorf("create recipe: %w", err)
		}
	} else {
		communityID, err := id.Generate("rcp")
		if err != nil {
			return nil, fmt.Errorf("generate recipe ID: %w", err)
		}
		community := &domain.Recipe{
			Title:          req.Title,
			Steps:          req.Steps,
			Servings:       req.Servings,
			PrepMinutes:    req.PrepMinutes,
			CookMinutes:    req.CookMinutes,
			RestMinutes:    req.RestMinutes,
			CreatorID:      actorID,
			CommunityID:    req.CommunityID,
			OriginRecipeID: personalID,
		}
		community.ID = communityID
		community.InitTimestamps()

		if err := s.store.CreateRecipePair(ctx, personal, community, ingredients); err != nil {
			return nil, fmt.Errorf("create recipe pair: %w", err)
		}
		created = community
	}

	for _, name := range req.Tags {
		if err := s.attachResolvedTag(ctx, actorID, created, name); err != nil {
			return nil, err
		}
	}

	s.indexRecipe(ctx, created, ingredients)

	s.logger.Info("recipe created",
		"recipe_id", created.ID,
		"creator_id", actorID,
		"community_id", created.CommunityID)
	return created, nil
}

// Get returns a recipe with its ingredients and tags. Personal recipes are
// visible only to their creator; community recipes to community members.
func (s *RecipeService) Get(ctx context.Context, actorID, recipeID string) (*RecipeDetail, error) {
	recipe, err := s.authorizeRead(ctx, actorID, recipeID)
	if err != nil {
		return nil, err
	}

	ingredients, err := s.store.GetRecipeIngredients(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("get ingredients: %w", err)
	}
	tags, err := s.store.ListRecipeTags(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe tags: %w", err)
	}

	return &RecipeDetail{Recipe: recipe, Ingredients: ingredients, Tags: tags}, nil
}

// Update replaces a recipe's content. Only the creator may edit, and edits
// bump the last-modified time that the proposal stale check compares against.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID string, req UpdateRecipeRequest) (*domain.Recipe, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	recipe, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.CreatorID != actorID {
		return nil, domainerrors.Forbidden("only the creator edits a recipe")
	}

	recipe.Title = req.Title
	recipe.Steps = req.Steps
	recipe.Servings = req.Servings
	recipe.PrepMinutes = req.PrepMinutes
	recipe.CookMinutes = req.CookMinutes
	recipe.RestMinutes = req.RestMinutes
	recipe.Touch()

	ingredients := toRecipeIngredients(req.Ingredients)
	if err := s.store.UpdateRecipe(ctx, recipe, ingredients); err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}

	s.indexRecipe(ctx, recipe, ingredients)
	return recipe, nil
}

// Delete soft-deletes a recipe. Only the creator may delete.
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID string) error {
	recipe, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return err
	}
	if recipe.CreatorID != actorID {
		return domainerrors.Forbidden("only the creator deletes a recipe")
	}

	if err := s.store.SoftDeleteRecipe(ctx, recipeID); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}

	if s.index != nil {
		if err := s.index.Delete(recipeID); err != nil {
			s.logger.Warn("failed to remove recipe from search index", "recipe_id", recipeID, "error", err)
		}
	}
	return nil
}

// ListPersonal returns the actor's personal recipes.
func (s *RecipeService) ListPersonal(ctx context.Context, actorID string, page store.PaginationParams) (*store.PaginatedResult[*domain.Recipe], error) {
	page.Validate()
	result, err := s.store.ListPersonalRecipes(ctx, actorID, page)
	if err != nil {
		return nil, fmt.Errorf("list personal recipes: %w", err)
	}
	return result, nil
}

// ListCommunity returns a community's recipes. Members only.
func (s *RecipeService) ListCommunity(ctx context.Context, actorID, communityID string, page store.PaginationParams) (*store.PaginatedResult[*domain.Recipe], error) {
	page.Validate()
	if _, err := s.store.GetMembership(ctx, communityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	result, err := s.store.ListCommunityRecipes(ctx, communityID, page)
	if err != nil {
		return nil, fmt.Errorf("list community recipes: %w", err)
	}
	return result, nil
}

// ListVariants returns the variants forged off a recipe, ordered by the most
// recent of created/updated time, descending.
func (s *RecipeService) ListVariants(ctx context.Context, actorID, recipeID string, page store.PaginationParams) (*store.PaginatedResult[*domain.Recipe], error) {
	page.Validate()
	if _, err := s.authorizeRead(ctx, actorID, recipeID); err != nil {
		return nil, err
	}
	result, err := s.store.ListVariants(ctx, recipeID, page)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	return result, nil
}

// Analytics returns the share/fork counters for a recipe.
func (s *RecipeService) Analytics(ctx context.Context, actorID, recipeID string) (*domain.RecipeAnalytics, error) {
	if _, err := s.authorizeRead(ctx, actorID, recipeID); err != nil {
		return nil, err
	}
	analytics, err := s.store.GetRecipeAnalytics(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("get recipe analytics: %w", err)
	}
	return analytics, nil
}

// Activity returns a recipe's audit log, newest first.
func (s *RecipeService) Activity(ctx context.Context, actorID, recipeID string) ([]*domain.Activity, error) {
	if _, err := s.authorizeRead(ctx, actorID, recipeID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListRecipeActivity(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe activity: %w", err)
	}
	return entries, nil
}

// attachResolvedTag resolves a tag name for the recipe and attaches it,
// respecting the per-recipe tag cap.
func (s *RecipeService) attachResolvedTag(ctx context.Context, actorID string, recipe *domain.Recipe, name string) error {
	count, err := s.store.CountRecipeTags(ctx, recipe.ID)
	if err != nil {
		return fmt.Errorf("count recipe tags: %w", err)
	}
	if count >= domain.MaxTagsPerRecipe {
		return domainerrors.Validationf("a recipe carries at most %d tags", domain.MaxTagsPerRecipe)
	}

	tag, create, err := resolveTag(ctx, s.store, actorID, recipe, name)
	if err != nil {
		return err
	}
	if err := s.store.AttachRecipeTag(ctx, recipe.ID, tag, create); err != nil {
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

func (s *RecipeService) getLiveRecipe(ctx context.Context, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.store.GetRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("recipe not found")
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	if recipe.IsDeleted() {
		return nil, domainerrors.Gone("recipe was deleted")
	}
	return recipe, nil
}

func (s *RecipeService) authorizeRead(ctx context.Context, actorID, recipeID string) (*domain.Recipe, error) {
	recipe, err := s.getLiveRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.IsPersonal() {
		if recipe.CreatorID != actorID {
			return nil, domainerrors.Forbidden("not your recipe")
		}
		return recipe, nil
	}
	if _, err := s.store.GetMembership(ctx, recipe.CommunityID, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Forbidden("not a member of this community")
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return recipe, nil
}

// indexRecipe updates the search index best-effort; indexing failures never
// fail the write they follow.
func (s *RecipeService) indexRecipe(_ context.Context, recipe *domain.Recipe, ingredients []domain.RecipeIngredient) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexRecipe(recipe, ingredients); err != nil {
		s.logger.Warn("failed to index recipe", "recipe_id", recipe.ID, "error", err)
	}
}
