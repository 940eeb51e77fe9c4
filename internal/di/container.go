// Package di provides dependency injection configuration for the Simmer server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/simmerapp/simmer-server/internal/auth"
	"github.com/simmerapp/simmer-server/internal/config"
	"github.com/simmerapp/simmer-server/internal/di/providers"
	"github.com/simmerapp/simmer-server/internal/logger"
	"github.com/simmerapp/simmer-server/internal/service"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideSessionService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideCommunityService)
	do.Provide(injector, providers.ProvideProposalService)
	do.Provide(injector, providers.ProvideMemberService)
	do.Provide(injector, providers.ProvideRecipeService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideSuggestionService)
	do.Provide(injector, providers.ProvideShareService)

	// Workers
	do.Provide(injector, providers.ProvideSessionCleanupJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.SessionService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.CommunityService](injector)
	_ = do.MustInvoke[*service.ProposalService](injector)
	_ = do.MustInvoke[*service.MemberService](injector)
	_ = do.MustInvoke[*service.RecipeService](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.SuggestionService](injector)
	_ = do.MustInvoke[*service.ShareService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionCleanupJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
