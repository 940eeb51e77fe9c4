package api

import (
	"github.com/simmerapp/simmer-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth       *service.AuthService
	Session    *service.SessionService
	Community  *service.CommunityService
	Member     *service.MemberService
	Recipe     *service.RecipeService
	Proposal   *service.ProposalService
	Tag        *service.TagService
	Suggestion *service.SuggestionService
	Share      *service.ShareService
	Search     *service.SearchService
}
