package providers

import (
	"github.com/samber/do/v2"

	"github.com/simmerapp/simmer-server/internal/auth"
	"github.com/simmerapp/simmer-server/internal/logger"
	"github.com/simmerapp/simmer-server/internal/service"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSessionService provides the session service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, sessionService, validator, log.Logger), nil
}

// ProvideCommunityService provides the community service.
func ProvideCommunityService(i do.Injector) (*service.CommunityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommunityService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideProposalService provides the change proposal service.
func ProvideProposalService(i do.Injector) (*service.ProposalService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProposalService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideMemberService provides the membership departure service.
func ProvideMemberService(i do.Injector) (*service.MemberService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	proposalService := do.MustInvoke[*service.ProposalService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMemberService(storeHandle.Store, proposalService, log.Logger), nil
}

// ProvideRecipeService provides the recipe service.
func ProvideRecipeService(i do.Injector) (*service.RecipeService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRecipeService(storeHandle.Store, indexHandle.Index, validator, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideSuggestionService provides the tag suggestion service.
func ProvideSuggestionService(i do.Injector) (*service.SuggestionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSuggestionService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideShareService provides the cross-community sharing service.
func ProvideShareService(i do.Injector) (*service.ShareService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewShareService(storeHandle.Store, indexHandle.Index, validator, log.Logger), nil
}
