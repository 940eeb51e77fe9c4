package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
)

func TestCreateCommunityOwnerIsModerator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")
	assert.Equal(t, "sunday-cooks", community.Slug)
	assert.Equal(t, owner.ID, community.OwnerID)

	members, err := env.communities.ListMembers(ctx, owner.ID, community.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.RoleModerator, members[0].Role)
}

func TestInviteFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	invitee := env.registerUser(t, "invitee")
	stranger := env.registerUser(t, "stranger")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")

	// Only moderators invite.
	_, err := env.communities.Invite(ctx, invitee.ID, community.ID, InviteRequest{Email: stranger.Email})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	inv, err := env.communities.Invite(ctx, owner.ID, community.ID, InviteRequest{Email: invitee.Email})
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationPending, inv.Status)

	// No duplicate pending invitation for the same email.
	_, err = env.communities.Invite(ctx, owner.ID, community.ID, InviteRequest{Email: invitee.Email})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	// The invitation is bound to the invitee's email.
	_, err = env.communities.AcceptInvitation(ctx, stranger.ID, inv.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	membership, err := env.communities.AcceptInvitation(ctx, invitee.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, membership.Role)

	// Accepting twice conflicts.
	_, err = env.communities.AcceptInvitation(ctx, invitee.ID, inv.ID)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	// Inviting an existing member conflicts.
	_, err = env.communities.Invite(ctx, owner.ID, community.ID, InviteRequest{Email: invitee.Email})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestCommunityVisibilityRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	outsider := env.registerUser(t, "outsider")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")

	_, err := env.communities.Get(ctx, outsider.ID, community.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	listed, err := env.communities.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, community.ID, listed[0].ID)

	empty, err := env.communities.ListForUser(ctx, outsider.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPromoteRequiresModerator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.registerUser(t, "owner")
	memberA := env.registerUser(t, "member-a")
	memberB := env.registerUser(t, "member-b")
	community := env.createCommunity(t, owner.ID, "Sunday Cooks")
	env.joinCommunity(t, owner.ID, community.ID, memberA)
	env.joinCommunity(t, owner.ID, community.ID, memberB)

	err := env.communities.Promote(ctx, memberA.ID, community.ID, memberB.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, env.communities.Promote(ctx, owner.ID, community.ID, memberA.ID))

	// Promoting a moderator again conflicts.
	err = env.communities.Promote(ctx, owner.ID, community.ID, memberA.ID)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}
