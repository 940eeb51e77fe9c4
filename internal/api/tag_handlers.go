package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "attachTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/recipes/{id}/tags",
		Summary:     "Attach tag",
		Description: "Attaches a tag to a recipe, resolving or creating it by name",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAttachTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "listGlobalTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List global tags",
		Description: "Lists approved global tags",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListGlobalTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCommunityTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/communities/{id}/tags",
		Summary:     "List community tags",
		Description: "Lists a community's tags, optionally filtered by status. Members only.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCommunityTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/approve",
		Summary:     "Approve tag",
		Description: "Approves a pending community tag. Moderators only.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleApproveTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/reject",
		Summary:     "Reject tag",
		Description: "Rejects a pending community tag, removing it and its attachments. Moderators only.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRejectTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Delete tag",
		Description: "Deletes a community tag and detaches it from recipes. Moderators only.",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTag)
}

// === DTOs ===

// AttachTagRequest is the request body for attaching a tag.
type AttachTagRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50" doc:"Tag name"`
}

// AttachTagInput wraps the attach request for Huma.
type AttachTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Recipe ID"`
	Body          AttachTagRequest
}

// TagResponse contains tag information in API responses.
type TagResponse struct {
	ID          string    `json:"id" doc:"Tag ID"`
	Name        string    `json:"name" doc:"Tag name"`
	Slug        string    `json:"slug" doc:"URL-friendly name"`
	Scope       string    `json:"scope" doc:"Tag scope (GLOBAL or COMMUNITY)"`
	Status      string    `json:"status" doc:"Moderation status (PENDING or APPROVED)"`
	CommunityID string    `json:"community_id,omitempty" doc:"Owning community for community tags"`
	CreatedBy   string    `json:"created_by" doc:"Creating user ID"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation timestamp"`
}

// TagOutput wraps a single tag for Huma.
type TagOutput struct {
	Body TagResponse
}

// TagListOutput wraps a tag list for Huma.
type TagListOutput struct {
	Body struct {
		Tags []TagResponse `json:"tags" doc:"Matching tags"`
	}
}

// ListGlobalTagsInput carries the auth header for the global tag list.
type ListGlobalTagsInput struct {
	Authorization string `header:"Authorization"`
}

// ListCommunityTagsInput identifies the community and optional status filter.
type ListCommunityTagsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Community ID"`
	Status        string `query:"status" enum:",PENDING,APPROVED" doc:"Filter by moderation status"`
}

// TagInput identifies one tag.
type TagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
}

// === Handlers ===

func (s *Server) handleAttachTag(ctx context.Context, input *AttachTagInput) (*TagOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tag, err := s.services.Tag.Attach(ctx, userID, input.ID, service.AttachTagRequest{
		Name: input.Body.Name,
	})
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: mapTagResponse(tag)}, nil
}

func (s *Server) handleListGlobalTags(ctx context.Context, input *ListGlobalTagsInput) (*TagListOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.ListGlobalTags(ctx)
	if err != nil {
		return nil, err
	}

	return mapTagListOutput(tags), nil
}

func (s *Server) handleListCommunityTags(ctx context.Context, input *ListCommunityTagsInput) (*TagListOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Tag.ListCommunityTags(ctx, userID, input.ID, domain.TagStatus(input.Status))
	if err != nil {
		return nil, err
	}

	return mapTagListOutput(tags), nil
}

func (s *Server) handleApproveTag(ctx context.Context, input *TagInput) (*TagOutput, error) {
	return s.decideTag(ctx, input, true)
}

func (s *Server) handleRejectTag(ctx context.Context, input *TagInput) (*TagOutput, error) {
	return s.decideTag(ctx, input, false)
}

func (s *Server) decideTag(ctx context.Context, input *TagInput, approve bool) (*TagOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	tag, err := s.services.Tag.Decide(ctx, userID, input.ID, approve)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: mapTagResponse(tag)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Tag.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Tag deleted"}}, nil
}

// === Helpers ===

func mapTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Scope:       string(t.Scope),
		Status:      string(t.Status),
		CommunityID: t.CommunityID,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
	}
}

func mapTagListOutput(tags []*domain.Tag) *TagListOutput {
	out := &TagListOutput{}
	out.Body.Tags = make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out.Body.Tags = append(out.Body.Tags, mapTagResponse(t))
	}
	return out
}
