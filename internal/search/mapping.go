package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for recipe documents.
//
// Titles and steps get English stemming; ingredient names get stemming too
// so "tomatoes" finds "tomato". Creator and community IDs are exact keyword
// fields used only for filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Title is the primary search target.
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	// Steps are searchable but not stored; the database is the source of
	// truth for display.
	stepsFieldMapping := bleve.NewTextFieldMapping()
	stepsFieldMapping.Analyzer = en.AnalyzerName
	stepsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("steps", stepsFieldMapping)

	ingredientsFieldMapping := bleve.NewTextFieldMapping()
	ingredientsFieldMapping.Analyzer = en.AnalyzerName
	ingredientsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("ingredients", ingredientsFieldMapping)

	// --- Exact-match filter fields ---

	creatorFieldMapping := bleve.NewTextFieldMapping()
	creatorFieldMapping.Analyzer = keyword.Name
	creatorFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("creator_id", creatorFieldMapping)

	communityFieldMapping := bleve.NewTextFieldMapping()
	communityFieldMapping.Analyzer = keyword.Name
	communityFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("community_id", communityFieldMapping)

	variantFieldMapping := bleve.NewBooleanFieldMapping()
	variantFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("is_variant", variantFieldMapping)

	// --- Numeric fields for sorting ---

	createdFieldMapping := bleve.NewNumericFieldMapping()
	createdFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdFieldMapping)

	updatedFieldMapping := bleve.NewNumericFieldMapping()
	updatedFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
