package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params configures a recipe search.
type Params struct {
	Query string // User's search query

	// Scope filters. Exactly one of CreatorID (personal scope) or
	// CommunityID (community scope) is normally set by the caller.
	CreatorID   string
	CommunityID string

	// ExcludeVariants drops forged variants from the results.
	ExcludeVariants bool

	// Pagination
	Limit  int
	Offset int
}

// DefaultParams returns sensible defaults.
func DefaultParams() Params {
	return Params{
		Limit:  20,
		Offset: 0,
	}
}

// Result is a page of search hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a single matching recipe.
type Hit struct {
	ID          string            `json:"id"`
	Score       float64           `json:"score"`
	Title       string            `json:"title"`
	CommunityID string            `json:"community_id,omitempty"`
	IsVariant   bool              `json:"is_variant"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// Search executes a recipe search.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = 20
	}

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	searchRequest.Highlight = bleve.NewHighlight()
	searchRequest.Highlight.AddField("title")
	searchRequest.Highlight.AddField("ingredients")

	searchRequest.Fields = []string{"id", "title", "community_id", "is_variant"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if title, ok := hit.Fields["title"].(string); ok {
			h.Title = title
		}
		if communityID, ok := hit.Fields["community_id"].(string); ok {
			h.CommunityID = communityID
		}
		if isVariant, ok := hit.Fields["is_variant"].(bool); ok {
			h.IsVariant = isVariant
		}
		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery combines the text match with the scope filters.
func buildSearchQuery(params Params) query.Query {
	var must []query.Query

	text := strings.TrimSpace(params.Query)
	if text == "" {
		must = append(must, bleve.NewMatchAllQuery())
	} else {
		// Match on title, steps, and ingredients; a fuzzy match catches
		// close misspellings.
		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(2.0)

		stepsMatch := bleve.NewMatchQuery(text)
		stepsMatch.SetField("steps")

		ingredientsMatch := bleve.NewMatchQuery(text)
		ingredientsMatch.SetField("ingredients")

		fuzzyTitle := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzyTitle.SetField("title")
		fuzzyTitle.SetFuzziness(1)

		must = append(must, bleve.NewDisjunctionQuery(titleMatch, stepsMatch, ingredientsMatch, fuzzyTitle))
	}

	if params.CommunityID != "" {
		communityFilter := bleve.NewTermQuery(params.CommunityID)
		communityFilter.SetField("community_id")
		must = append(must, communityFilter)
	} else if params.CreatorID != "" {
		creatorFilter := bleve.NewTermQuery(params.CreatorID)
		creatorFilter.SetField("creator_id")
		must = append(must, creatorFilter)
	}

	if params.ExcludeVariants {
		variantFilter := bleve.NewBoolFieldQuery(false)
		variantFilter.SetField("is_variant")
		must = append(must, variantFilter)
	}

	if len(must) == 1 {
		return must[0]
	}
	return bleve.NewConjunctionQuery(must...)
}
