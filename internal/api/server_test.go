package api

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/simmerapp/simmer-server/internal/auth"
	"github.com/simmerapp/simmer-server/internal/search"
	"github.com/simmerapp/simmer-server/internal/service"
	"github.com/simmerapp/simmer-server/internal/store/sqlite"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// testEnvelope mirrors the wire envelope with a typed data field.
type testEnvelope[T any] struct {
	V       int        `json:"v"`
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *ErrorBody `json:"error"`
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api          humatest.TestAPI
	cleanup      func()
	tokenService *auth.TokenService
}

// setupTestServer creates a server backed by a real SQLite store and a real
// Bleve index in a temp directory.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "simmer-api-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)

	index, err := search.NewIndex(search.Options{
		DataPath: filepath.Join(tmpDir, "search"),
		Logger:   logger,
	})
	require.NoError(t, err)

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(
		hex.EncodeToString(authKey),
		15*time.Minute,
		30*24*time.Hour,
	)
	require.NoError(t, err)

	validator := validation.New()

	sessionService := service.NewSessionService(st, tokenService, logger)
	authService := service.NewAuthService(st, tokenService, sessionService, validator, logger)
	communityService := service.NewCommunityService(st, validator, logger)
	proposalService := service.NewProposalService(st, validator, logger)
	memberService := service.NewMemberService(st, proposalService, logger)
	recipeService := service.NewRecipeService(st, index, validator, logger)
	tagService := service.NewTagService(st, validator, logger)
	suggestionService := service.NewSuggestionService(st, validator, logger)
	shareService := service.NewShareService(st, index, validator, logger)
	searchService := service.NewSearchService(st, index, logger)

	services := &Services{
		Auth:       authService,
		Session:    sessionService,
		Community:  communityService,
		Member:     memberService,
		Recipe:     recipeService,
		Proposal:   proposalService,
		Tag:        tagService,
		Suggestion: suggestionService,
		Share:      shareService,
		Search:     searchService,
	}

	router := chi.NewRouter()

	humaConfig := huma.DefaultConfig("Simmer API Test", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:           st,
		services:        services,
		router:          router,
		api:             api,
		logger:          logger,
		authRateLimiter: NewRateLimiter(100, time.Minute, 50),
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerCommunityRoutes()
	s.registerRecipeRoutes()
	s.registerProposalRoutes()
	s.registerTagRoutes()
	s.registerSuggestionRoutes()
	s.registerShareRoutes()
	s.registerSearchRoutes()

	testAPI := humatest.Wrap(t, api)

	cleanup := func() {
		_ = index.Close()
		_ = st.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return &testServer{
		Server:       s,
		api:          testAPI,
		cleanup:      cleanup,
		tokenService: tokenService,
	}
}

// setupRootUser runs initial setup and returns the root user's token and ID.
func (ts *testServer) setupRootUser(t *testing.T) (token string, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/setup", map[string]any{
		"display_name": "Root User",
		"email":        "root@example.com",
		"password":     "SecurePassword123!",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Setup failed: %s", resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	return envelope.Data.AccessToken, envelope.Data.User.ID
}

// registerUser registers an additional user on an already set up server.
func (ts *testServer) registerUser(t *testing.T, displayName, email string) (token string, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"display_name": displayName,
		"email":        email,
		"password":     "SecurePassword123!",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Register failed: %s", resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)

	return envelope.Data.AccessToken, envelope.Data.User.ID
}

// bearer formats an Authorization header argument for humatest requests.
func bearer(token string) string {
	return "Authorization: Bearer " + token
}
