package domain

import "time"

// SuggestionStatus is the lifecycle state of a tag suggestion.
type SuggestionStatus string

// Suggestion statuses. PENDING_OWNER means the recipe owner has not yet
// decided; PENDING_MODERATOR means the owner accepted but the underlying
// community tag is still awaiting moderation. APPROVED and REJECTED are
// terminal.
const (
	SuggestionPendingOwner     SuggestionStatus = "PENDING_OWNER"
	SuggestionPendingModerator SuggestionStatus = "PENDING_MODERATOR"
	SuggestionApproved         SuggestionStatus = "APPROVED"
	SuggestionRejected         SuggestionStatus = "REJECTED"
)

// IsTerminal reports whether the status is a terminal state.
func (s SuggestionStatus) IsTerminal() bool {
	return s == SuggestionApproved || s == SuggestionRejected
}

// TagSuggestion is a member's proposal to attach a tag name to someone
// else's recipe. At most one active (non-terminal) suggestion may exist per
// (recipe, tag name), and the suggester is never the recipe owner.
type TagSuggestion struct {
	Record
	RecipeID    string           `json:"recipe_id"`
	SuggesterID string           `json:"suggester_id"`
	TagName     string           `json:"tag_name"`
	TagSlug     string           `json:"tag_slug"`
	Status      SuggestionStatus `json:"status"`
	TagID       string           `json:"tag_id,omitempty"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
}

// IsActive reports whether the suggestion is still awaiting a decision.
func (s *TagSuggestion) IsActive() bool {
	return !s.Status.IsTerminal()
}
