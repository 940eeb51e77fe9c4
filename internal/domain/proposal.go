package domain

import "time"

// ProposalStatus is the lifecycle state of a recipe update proposal.
// PENDING transitions exactly once to ACCEPTED or REJECTED; both are terminal.
type ProposalStatus string

// Proposal statuses.
const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalRejected ProposalStatus = "REJECTED"
)

// Proposal is a pending change against exactly one community recipe copy.
// The proposer must not be the recipe's creator, and the target must be a
// community copy.
type Proposal struct {
	Record
	RecipeID   string         `json:"recipe_id"`
	ProposerID string         `json:"proposer_id"`
	Content    RecipeContent  `json:"content"`
	Status     ProposalStatus `json:"status"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`
}

// IsDecided reports whether the proposal has reached a terminal state.
func (p *Proposal) IsDecided() bool {
	return p.Status != ProposalPending
}

// IsStaleFor reports whether the target recipe was modified after this
// proposal was filed. A stale proposal must not be merged without re-review.
func (p *Proposal) IsStaleFor(target *Recipe) bool {
	return target.UpdatedAt.After(p.CreatedAt)
}
