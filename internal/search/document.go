// Package search provides full-text recipe search using Bleve, covering
// titles, steps, and ingredient names with scope filtering so personal and
// community recipes stay separated at query time.
package search

import (
	"github.com/simmerapp/simmer-server/internal/domain"
)

// Document is the structure recipes are indexed as.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Steps       []string `json:"steps,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	CreatorID   string   `json:"creator_id"`
	CommunityID string   `json:"community_id,omitempty"`
	IsVariant   bool     `json:"is_variant"`
	CreatedAt   int64    `json:"created_at"` // Unix millis
	UpdatedAt   int64    `json:"updated_at"` // Unix millis
}

// NewDocument builds an index document from a recipe and its ingredients.
func NewDocument(recipe *domain.Recipe, ingredients []domain.RecipeIngredient) *Document {
	names := make([]string, len(ingredients))
	for i, ing := range ingredients {
		names[i] = ing.Name
	}

	return &Document{
		ID:          recipe.ID,
		Title:       recipe.Title,
		Steps:       recipe.Steps,
		Ingredients: names,
		CreatorID:   recipe.CreatorID,
		CommunityID: recipe.CommunityID,
		IsVariant:   recipe.IsVariant,
		CreatedAt:   recipe.CreatedAt.UnixMilli(),
		UpdatedAt:   recipe.UpdatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"title":      d.Title,
		"creator_id": d.CreatorID,
		"is_variant": d.IsVariant,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if len(d.Steps) > 0 {
		m["steps"] = d.Steps
	}
	if len(d.Ingredients) > 0 {
		m["ingredients"] = d.Ingredients
	}
	if d.CommunityID != "" {
		m["community_id"] = d.CommunityID
	}

	return m
}
