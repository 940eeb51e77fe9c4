package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTagName(t *testing.T) {
	global := &Tag{Name: "Quick", Slug: "quick", Scope: TagScopeGlobal, Status: TagApproved}
	communityApproved := &Tag{Name: "Weeknight", Slug: "weeknight", Scope: TagScopeCommunity, Status: TagApproved, CommunityID: "cmt-1"}
	communityPending := &Tag{Name: "Fusion", Slug: "fusion", Scope: TagScopeCommunity, Status: TagPending, CommunityID: "cmt-1"}

	t.Run("global approved tag is always reused", func(t *testing.T) {
		res := ResolveTagName("cmt-1", TagCandidates{GlobalApproved: global})

		require.NotNil(t, res.Reused)
		assert.Nil(t, res.Create)
		assert.Equal(t, global, res.Reused)
	})

	t.Run("personal recipe creates global approved tag", func(t *testing.T) {
		res := ResolveTagName("", TagCandidates{})

		require.NotNil(t, res.Create)
		assert.Nil(t, res.Reused)
		assert.Equal(t, TagScopeGlobal, res.Create.Scope)
		assert.Equal(t, TagApproved, res.Create.Status)
		assert.Empty(t, res.Create.CommunityID)
	})

	t.Run("personal recipe ignores community candidates", func(t *testing.T) {
		res := ResolveTagName("", TagCandidates{
			CommunityApproved: communityApproved,
			CommunityPending:  communityPending,
		})

		require.NotNil(t, res.Create)
		assert.Equal(t, TagScopeGlobal, res.Create.Scope)
		assert.Equal(t, TagApproved, res.Create.Status)
	})

	t.Run("community approved tag is reused before pending", func(t *testing.T) {
		res := ResolveTagName("cmt-1", TagCandidates{
			CommunityApproved: communityApproved,
			CommunityPending:  communityPending,
		})

		require.NotNil(t, res.Reused)
		assert.Equal(t, communityApproved, res.Reused)
	})

	t.Run("community pending tag is reused instead of duplicated", func(t *testing.T) {
		res := ResolveTagName("cmt-1", TagCandidates{CommunityPending: communityPending})

		require.NotNil(t, res.Reused)
		assert.Equal(t, communityPending, res.Reused)
	})

	t.Run("unknown name on community recipe creates pending community tag", func(t *testing.T) {
		res := ResolveTagName("cmt-1", TagCandidates{})

		require.NotNil(t, res.Create)
		assert.Equal(t, TagScopeCommunity, res.Create.Scope)
		assert.Equal(t, TagPending, res.Create.Status)
		assert.Equal(t, "cmt-1", res.Create.CommunityID)
	})
}
