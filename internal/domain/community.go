package domain

import "time"

// MemberRole is the role a user holds within a community.
type MemberRole string

// Member roles.
const (
	RoleMember    MemberRole = "member"
	RoleModerator MemberRole = "moderator"
)

// IsValid reports whether the role is one of the known roles.
func (r MemberRole) IsValid() bool {
	return r == RoleMember || r == RoleModerator
}

// Community is a group of users collaborating on shared recipes.
type Community struct {
	Record
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
}

// Membership links a user to a community with a role.
type Membership struct {
	ID          string     `json:"id"`
	CommunityID string     `json:"community_id"`
	UserID      string     `json:"user_id"`
	Role        MemberRole `json:"role"`
	JoinedAt    time.Time  `json:"joined_at"`
}

// IsModerator reports whether this membership carries moderator rights.
func (m *Membership) IsModerator() bool {
	return m.Role == RoleModerator
}

// InvitationStatus is the lifecycle state of a community invitation.
type InvitationStatus string

// Invitation statuses.
const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationCancelled InvitationStatus = "CANCELLED"
)

// Invitation is a pending offer for a user to join a community.
// Invitations are cancelled, not deleted, when a community dissolves.
type Invitation struct {
	Record
	CommunityID  string           `json:"community_id"`
	InviterID    string           `json:"inviter_id"`
	InviteeEmail string           `json:"invitee_email"`
	Status       InvitationStatus `json:"status"`
	RespondedAt  *time.Time       `json:"responded_at,omitempty"`
}
