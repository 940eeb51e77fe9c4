package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/simmerapp/simmer-server/internal/auth"
	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
	"github.com/simmerapp/simmer-server/internal/store/sqlite"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// testEnv wires every service against a real sqlite store in a temp dir.
type testEnv struct {
	store       *sqlite.Store
	auth        *AuthService
	sessions    *SessionService
	communities *CommunityService
	members     *MemberService
	recipes     *RecipeService
	proposals   *ProposalService
	tags        *TagService
	suggestions *SuggestionService
	shares      *ShareService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens, err := auth.NewTokenService(strings.Repeat("ab", 32), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	v := validation.New()
	sessions := NewSessionService(st, tokens, logger)
	proposals := NewProposalService(st, v, logger)

	return &testEnv{
		store:       st,
		auth:        NewAuthService(st, tokens, sessions, v, logger),
		sessions:    sessions,
		communities: NewCommunityService(st, v, logger),
		members:     NewMemberService(st, proposals, logger),
		recipes:     NewRecipeService(st, nil, v, logger),
		proposals:   proposals,
		tags:        NewTagService(st, v, logger),
		suggestions: NewSuggestionService(st, v, logger),
		shares:      NewShareService(st, nil, v, logger),
	}
}

func pageDefaults() store.PaginationParams {
	return store.DefaultPaginationParams()
}

// registerUser creates an account and returns the user.
func (e *testEnv) registerUser(t *testing.T, name string) *domain.User {
	t.Helper()
	user, _, err := e.auth.Register(context.Background(), RegisterRequest{
		DisplayName: name,
		Email:       name + "@example.com",
		Password:    "password123",
	}, "test-client", "127.0.0.1")
	require.NoError(t, err)
	return user
}

// createCommunity creates a community owned by ownerID.
func (e *testEnv) createCommunity(t *testing.T, ownerID, name string) *domain.Community {
	t.Helper()
	community, err := e.communities.Create(context.Background(), ownerID, CreateCommunityRequest{Name: name})
	require.NoError(t, err)
	return community
}

// joinCommunity runs the invite/accept flow to add user to a community.
func (e *testEnv) joinCommunity(t *testing.T, moderatorID, communityID string, user *domain.User) {
	t.Helper()
	ctx := context.Background()
	inv, err := e.communities.Invite(ctx, moderatorID, communityID, InviteRequest{Email: user.Email})
	require.NoError(t, err)
	_, err = e.communities.AcceptInvitation(ctx, user.ID, inv.ID)
	require.NoError(t, err)
}

// createCommunityRecipe authors a recipe into a community and returns the
// community copy.
func (e *testEnv) createCommunityRecipe(t *testing.T, creatorID, communityID, title string, steps []string) *domain.Recipe {
	t.Helper()
	recipe, err := e.recipes.Create(context.Background(), creatorID, CreateRecipeRequest{
		Title:       title,
		Steps:       steps,
		Servings:    4,
		CommunityID: communityID,
	})
	require.NoError(t, err)
	return recipe
}
