package domain

// TagScope determines where a tag's name is unique and who may see it.
type TagScope string

// Tag scopes.
const (
	TagScopeGlobal    TagScope = "GLOBAL"
	TagScopeCommunity TagScope = "COMMUNITY"
)

// TagStatus is the moderation state of a tag.
type TagStatus string

// Tag statuses.
const (
	TagPending  TagStatus = "PENDING"
	TagApproved TagStatus = "APPROVED"
)

// MaxTagsPerRecipe is the maximum number of tags a single recipe may carry.
// The limit is checked before any tag resolution runs.
const MaxTagsPerRecipe = 10

// Tag is a free-text label attached to recipes. Name uniqueness is enforced
// per scope: one GLOBAL name overall, one COMMUNITY name per community, and
// a COMMUNITY name may not shadow an existing GLOBAL name.
type Tag struct {
	Record
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Scope       TagScope  `json:"scope"`
	Status      TagStatus `json:"status"`
	CommunityID string    `json:"community_id,omitempty"`
	CreatedBy   string    `json:"created_by"`
}

// IsApproved reports whether the tag has cleared moderation.
func (t *Tag) IsApproved() bool {
	return t.Status == TagApproved
}

// TagResolution is the outcome of resolving a tag name against the existing
// tag rows visible to a recipe. Exactly one of Reused or Create is set.
type TagResolution struct {
	// Reused is the existing tag to attach, if the name matched one.
	Reused *Tag

	// Create describes the tag to create when no existing tag matched.
	Create *TagBlueprint
}

// TagBlueprint describes a tag that needs to be created to satisfy a
// resolution.
type TagBlueprint struct {
	Scope       TagScope
	Status      TagStatus
	CommunityID string
}

// TagCandidates holds the existing tag rows visible when resolving a name.
// Each field is nil when no matching row exists.
type TagCandidates struct {
	GlobalApproved    *Tag // GLOBAL tag with matching slug, APPROVED
	CommunityApproved *Tag // COMMUNITY tag in the target community, APPROVED
	CommunityPending  *Tag // COMMUNITY tag in the target community, PENDING
}

// ResolveTagName decides whether a tag name attached to a recipe reuses an
// existing tag or creates a new one, and with what initial status.
//
// Personal recipes resolve permissively: reuse a GLOBAL-APPROVED tag or
// create one APPROVED. Community recipes resolve in stages: GLOBAL-APPROVED,
// then COMMUNITY-APPROVED, then COMMUNITY-PENDING (so duplicate pending rows
// are never created for the same name), else create COMMUNITY-PENDING
// awaiting moderator review.
func ResolveTagName(communityID string, existing TagCandidates) TagResolution {
	if existing.GlobalApproved != nil {
		return TagResolution{Reused: existing.GlobalApproved}
	}

	if communityID == "" {
		// Personal authoring never produces a pending tag.
		return TagResolution{Create: &TagBlueprint{
			Scope:  TagScopeGlobal,
			Status: TagApproved,
		}}
	}

	if existing.CommunityApproved != nil {
		return TagResolution{Reused: existing.CommunityApproved}
	}
	if existing.CommunityPending != nil {
		return TagResolution{Reused: existing.CommunityPending}
	}

	return TagResolution{Create: &TagBlueprint{
		Scope:       TagScopeCommunity,
		Status:      TagPending,
		CommunityID: communityID,
	}}
}
