package domain

// Recipe is a unit of recipe content. A recipe is either a personal copy
// (CommunityID empty) or a community copy. Community copies link back to the
// copy they were derived from via OriginRecipeID; following those links always
// terminates at a personal copy or a source fork.
type Recipe struct {
	Record
	Title          string   `json:"title"`
	Steps          []string `json:"steps"`
	Servings       int      `json:"servings"`
	PrepMinutes    int      `json:"prep_minutes"`
	CookMinutes    int      `json:"cook_minutes"`
	RestMinutes    int      `json:"rest_minutes"`
	CreatorID      string   `json:"creator_id"`
	CommunityID    string   `json:"community_id,omitempty"`
	OriginRecipeID string   `json:"origin_recipe_id,omitempty"`
	IsVariant      bool     `json:"is_variant"`

	// SharedFromCommunityID is set when this copy was forked into its
	// community from a recipe in another community.
	SharedFromCommunityID string `json:"shared_from_community_id,omitempty"`
}

// IsPersonal reports whether this is a personal copy.
func (r *Recipe) IsPersonal() bool {
	return r.CommunityID == ""
}

// IsCommunity reports whether this is a community copy.
func (r *Recipe) IsCommunity() bool {
	return r.CommunityID != ""
}

// RecipeContent is the set of fields a proposal, variant, or cascade can
// carry. Ingredients is optional: nil means "leave ingredients untouched",
// an empty non-nil slice means "replace with no ingredients".
type RecipeContent struct {
	Title       string             `json:"title"`
	Steps       []string           `json:"steps"`
	Servings    int                `json:"servings"`
	PrepMinutes int                `json:"prep_minutes"`
	CookMinutes int                `json:"cook_minutes"`
	RestMinutes int                `json:"rest_minutes"`
	Ingredients []RecipeIngredient `json:"ingredients,omitempty"`
}

// Apply copies the content fields onto a recipe. Ingredient replacement is
// handled by the store, not here.
func (c *RecipeContent) Apply(r *Recipe) {
	r.Title = c.Title
	r.Steps = c.Steps
	r.Servings = c.Servings
	r.PrepMinutes = c.PrepMinutes
	r.CookMinutes = c.CookMinutes
	r.RestMinutes = c.RestMinutes
}

// ContentOf extracts the proposable content of a recipe, without ingredients.
func ContentOf(r *Recipe) RecipeContent {
	return RecipeContent{
		Title:       r.Title,
		Steps:       r.Steps,
		Servings:    r.Servings,
		PrepMinutes: r.PrepMinutes,
		CookMinutes: r.CookMinutes,
		RestMinutes: r.RestMinutes,
	}
}

// Ingredient is a catalog entry shared across recipes.
type Ingredient struct {
	Record
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RecipeIngredient associates an ingredient with a recipe. Ingredient lists
// are always replaced wholesale, never merged.
type RecipeIngredient struct {
	IngredientID string  `json:"ingredient_id,omitempty"`
	Name         string  `json:"name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit,omitempty"`
	Position     int     `json:"position"`
}
