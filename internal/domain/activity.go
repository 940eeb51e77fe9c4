package domain

import "time"

// ActivityReason is a stable short code describing why an activity entry
// was recorded.
type ActivityReason string

// Activity reason codes.
const (
	ReasonProposalAccepted ActivityReason = "proposal_accepted"
	ReasonProposalRejected ActivityReason = "proposal_rejected"
	ReasonProposalOrphaned ActivityReason = "proposal_orphaned"
	ReasonVariantForged    ActivityReason = "variant_forged"
	ReasonRecipeShared     ActivityReason = "recipe_shared"
	ReasonTagDecided       ActivityReason = "tag_decided"
)

// Activity is an audit log entry attached to a recipe.
type Activity struct {
	ID        string         `json:"id"`
	RecipeID  string         `json:"recipe_id"`
	ActorID   string         `json:"actor_id"`
	Reason    ActivityReason `json:"reason"`
	Detail    string         `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// RecipeAnalytics holds per-recipe usage counters. The row is created
// lazily on first share.
type RecipeAnalytics struct {
	RecipeID  string    `json:"recipe_id"`
	Shares    int64     `json:"shares"`
	Forks     int64     `json:"forks"`
	UpdatedAt time.Time `json:"updated_at"`
}
