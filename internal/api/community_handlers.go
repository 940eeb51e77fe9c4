package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
	"github.com/simmerapp/simmer-server/internal/service"
)

func (s *Server) registerCommunityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createCommunity",
		Method:      http.MethodPost,
		Path:        "/api/v1/communities",
		Summary:     "Create community",
		Description: "Creates a community with the caller as owner and moderator",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateCommunity)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCommunities",
		Method:      http.MethodGet,
		Path:        "/api/v1/communities",
		Summary:     "List communities",
		Description: "Lists the communities the caller belongs to",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCommunities)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCommunity",
		Method:      http.MethodGet,
		Path:        "/api/v1/communities/{id}",
		Summary:     "Get community",
		Description: "Returns one community the caller belongs to",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCommunity)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCommunityMembers",
		Method:      http.MethodGet,
		Path:        "/api/v1/communities/{id}/members",
		Summary:     "List members",
		Description: "Lists the members of a community the caller belongs to",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListMembers)

	huma.Register(s.api, huma.Operation{
		OperationID: "inviteToCommunity",
		Method:      http.MethodPost,
		Path:        "/api/v1/communities/{id}/invitations",
		Summary:     "Invite user",
		Description: "Invites a user by email. Moderators only.",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleInvite)

	huma.Register(s.api, huma.Operation{
		OperationID: "acceptInvitation",
		Method:      http.MethodPost,
		Path:        "/api/v1/invitations/{id}/accept",
		Summary:     "Accept invitation",
		Description: "Accepts a pending invitation addressed to the caller",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAcceptInvitation)

	huma.Register(s.api, huma.Operation{
		OperationID: "promoteMember",
		Method:      http.MethodPost,
		Path:        "/api/v1/communities/{id}/members/{userId}/promote",
		Summary:     "Promote member",
		Description: "Promotes a member to moderator. Moderators only.",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePromoteMember)

	huma.Register(s.api, huma.Operation{
		OperationID: "leaveCommunity",
		Method:      http.MethodPost,
		Path:        "/api/v1/communities/{id}/leave",
		Summary:     "Leave community",
		Description: "Removes the caller from a community, reassigning their shared recipes",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLeaveCommunity)

	huma.Register(s.api, huma.Operation{
		OperationID: "kickMember",
		Method:      http.MethodDelete,
		Path:        "/api/v1/communities/{id}/members/{userId}",
		Summary:     "Kick member",
		Description: "Removes a member from a community. Moderators only.",
		Tags:        []string{"Communities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleKickMember)
}

// === DTOs ===

// CreateCommunityRequest is the request body for community creation.
type CreateCommunityRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100" doc:"Community name"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000" doc:"Community description"`
}

// CreateCommunityInput wraps the create request for Huma.
type CreateCommunityInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateCommunityRequest
}

// CommunityResponse contains community information in API responses.
type CommunityResponse struct {
	ID          string    `json:"id" doc:"Community ID"`
	Name        string    `json:"name" doc:"Community name"`
	Slug        string    `json:"slug" doc:"URL-friendly name"`
	Description string    `json:"description,omitempty" doc:"Community description"`
	OwnerID     string    `json:"owner_id" doc:"Owning user ID"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// CommunityOutput wraps a single community for Huma.
type CommunityOutput struct {
	Body CommunityResponse
}

// CommunityListOutput wraps a community list for Huma.
type CommunityListOutput struct {
	Body struct {
		Communities []CommunityResponse `json:"communities" doc:"Communities the caller belongs to"`
	}
}

// ListCommunitiesInput carries the auth header for community listing.
type ListCommunitiesInput struct {
	Authorization string `header:"Authorization"`
}

// GetCommunityInput identifies one community.
type GetCommunityInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
}

// MemberResponse contains membership information in API responses.
type MemberResponse struct {
	UserID      string    `json:"user_id" doc:"Member user ID"`
	CommunityID string    `json:"community_id" doc:"Community ID"`
	Role        string    `json:"role" doc:"Member role (member or moderator)"`
	JoinedAt    time.Time `json:"joined_at" doc:"Join timestamp"`
}

// MemberListOutput wraps a member list for Huma.
type MemberListOutput struct {
	Body struct {
		Members []MemberResponse `json:"members" doc:"Community members"`
	}
}

// InviteRequest is the request body for inviting a user.
type InviteRequest struct {
	Email string `json:"email" validate:"required,email,max=254" doc:"Invitee email address"`
}

// InviteInput wraps the invite request for Huma.
type InviteInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
	Body          InviteRequest
}

// InvitationResponse contains invitation information in API responses.
type InvitationResponse struct {
	ID           string     `json:"id" doc:"Invitation ID"`
	CommunityID  string     `json:"community_id" doc:"Community ID"`
	InviterID    string     `json:"inviter_id" doc:"Inviting user ID"`
	InviteeEmail string     `json:"invitee_email" doc:"Invitee email address"`
	Status       string     `json:"status" doc:"Invitation status"`
	CreatedAt    time.Time  `json:"created_at" doc:"Creation timestamp"`
	RespondedAt  *time.Time `json:"responded_at,omitempty" doc:"When the invitee responded"`
}

// InvitationOutput wraps an invitation for Huma.
type InvitationOutput struct {
	Body InvitationResponse
}

// AcceptInvitationInput identifies the invitation to accept.
type AcceptInvitationInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Invitation ID"`
}

// MembershipOutput wraps a membership for Huma.
type MembershipOutput struct {
	Body MemberResponse
}

// PromoteMemberInput identifies the member to promote.
type PromoteMemberInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
	UserID        string `path:"userId" doc:"Member user ID"`
}

// LeaveCommunityInput identifies the community to leave.
type LeaveCommunityInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
}

// KickMemberInput identifies the member to remove.
type KickMemberInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
	UserID        string `path:"userId" doc:"Member user ID"`
}

// DepartureResponse reports the outcome of a member leaving or being kicked.
type DepartureResponse struct {
	OrphanedProposals int  `json:"orphaned_proposals" doc:"Open proposals rejected because the member left"`
	Dissolved         bool `json:"dissolved" doc:"Whether the community dissolved with the last member"`
}

// DepartureOutput wraps a departure response for Huma.
type DepartureOutput struct {
	Body DepartureResponse
}

// === Handlers ===

func (s *Server) handleCreateCommunity(ctx context.Context, input *CreateCommunityInput) (*CommunityOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	community, err := s.services.Community.Create(ctx, userID, service.CreateCommunityRequest{
		Name:        input.Body.Name,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}

	return &CommunityOutput{Body: mapCommunityResponse(community)}, nil
}

func (s *Server) handleListCommunities(ctx context.Context, input *ListCommunitiesInput) (*CommunityListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	communities, err := s.services.Community.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &CommunityListOutput{}
	out.Body.Communities = make([]CommunityResponse, 0, len(communities))
	for _, c := range communities {
		out.Body.Communities = append(out.Body.Communities, mapCommunityResponse(c))
	}
	return out, nil
}

func (s *Server) handleGetCommunity(ctx context.Context, input *GetCommunityInput) (*CommunityOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	community, err := s.services.Community.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &CommunityOutput{Body: mapCommunityResponse(community)}, nil
}

func (s *Server) handleListMembers(ctx context.Context, input *GetCommunityInput) (*MemberListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	members, err := s.services.Community.ListMembers(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &MemberListOutput{}
	out.Body.Members = make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out.Body.Members = append(out.Body.Members, mapMemberResponse(m))
	}
	return out, nil
}

func (s *Server) handleInvite(ctx context.Context, input *InviteInput) (*InvitationOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	invitation, err := s.services.Community.Invite(ctx, userID, input.ID, service.InviteRequest{
		Email: input.Body.Email,
	})
	if err != nil {
		return nil, err
	}

	return &InvitationOutput{
		Body: InvitationResponse{
			ID:           invitation.ID,
			CommunityID:  invitation.CommunityID,
			InviterID:    invitation.InviterID,
			InviteeEmail: invitation.InviteeEmail,
			Status:       string(invitation.Status),
			CreatedAt:    invitation.CreatedAt,
			RespondedAt:  invitation.RespondedAt,
		},
	}, nil
}

func (s *Server) handleAcceptInvitation(ctx context.Context, input *AcceptInvitationInput) (*MembershipOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	membership, err := s.services.Community.AcceptInvitation(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &MembershipOutput{Body: mapMemberResponse(membership)}, nil
}

func (s *Server) handlePromoteMember(ctx context.Context, input *PromoteMemberInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Community.Promote(ctx, userID, input.ID, input.UserID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Member promoted to moderator"}}, nil
}

func (s *Server) handleLeaveCommunity(ctx context.Context, input *LeaveCommunityInput) (*DepartureOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Member.Leave(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return departureOutput(result)
}

func (s *Server) handleKickMember(ctx context.Context, input *KickMemberInput) (*DepartureOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Member.Kick(ctx, userID, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	return departureOutput(result)
}

// departureOutput maps a departure result onto the wire. A departure that
// dissolved the community answers 410 so clients know it no longer exists.
func departureOutput(result *service.DepartureResult) (*DepartureOutput, error) {
	if result.Dissolved {
		return nil, domainerrors.Gone("community dissolved").WithDetails(DepartureResponse{
			OrphanedProposals: result.OrphanedProposals,
			Dissolved:         true,
		})
	}
	return &DepartureOutput{
		Body: DepartureResponse{
			OrphanedProposals: result.OrphanedProposals,
			Dissolved:         result.Dissolved,
		},
	}, nil
}

// === Helpers ===

func mapCommunityResponse(c *domain.Community) CommunityResponse {
	return CommunityResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func mapMemberResponse(m *domain.Membership) MemberResponse {
	return MemberResponse{
		UserID:      m.UserID,
		CommunityID: m.CommunityID,
		Role:        string(m.Role),
		JoinedAt:    m.JoinedAt,
	}
}
