package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
)

func orphanFor(p *domain.Proposal, variantID string) store.OrphanResolution {
	variant := &domain.Recipe{
		Title:          p.Content.Title,
		Steps:          p.Content.Steps,
		Servings:       p.Content.Servings,
		CreatorID:      p.ProposerID,
		CommunityID:    "cmt-1",
		OriginRecipeID: p.RecipeID,
		IsVariant:      true,
	}
	variant.ID = variantID
	variant.InitTimestamps()

	return store.OrphanResolution{
		Proposal: p,
		Forge: store.VariantForge{
			Variant: variant,
			Activity: &domain.Activity{
				ID:        "act-" + variantID,
				RecipeID:  variantID,
				ActorID:   p.ProposerID,
				Reason:    domain.ReasonProposalOrphaned,
				CreatedAt: time.Now(),
			},
		},
	}
}

func TestRemoveMemberCascadeOrphans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "usr-owner")
	departing := seedUser(t, s, "usr-leaving")
	proposer := seedUser(t, s, "usr-prop")
	seedCommunity(t, s, "cmt-1", owner.ID)
	if err := insertMembership(ctx, s.db, makeTestMembership("cmt-1", departing.ID, domain.RoleMember)); err != nil {
		t.Fatalf("add member: %v", err)
	}

	// Two recipes owned by the departing member, each with a pending
	// proposal, plus one already-decided proposal that must stay put.
	r1 := seedRecipe(t, s, "rcp-1", departing.ID, "cmt-1")
	r2 := seedRecipe(t, s, "rcp-2", departing.ID, "cmt-1")

	p1 := makeTestProposal("prp-1", r1.ID, proposer.ID)
	p2 := makeTestProposal("prp-2", r2.ID, proposer.ID)
	decided := makeTestProposal("prp-3", r1.ID, proposer.ID)
	decided.Status = domain.ProposalAccepted
	now := time.Now()
	decided.DecidedAt = &now
	for _, p := range []*domain.Proposal{p1, p2, decided} {
		if err := s.CreateProposal(ctx, p); err != nil {
			t.Fatalf("CreateProposal %s: %v", p.ID, err)
		}
	}

	err := s.RemoveMemberCascade(ctx, store.RemoveMemberParams{
		CommunityID: "cmt-1",
		UserID:      departing.ID,
		Orphans: []store.OrphanResolution{
			orphanFor(p1, "rcp-var-1"),
			orphanFor(p2, "rcp-var-2"),
		},
	})
	if err != nil {
		t.Fatalf("RemoveMemberCascade: %v", err)
	}

	// Membership is gone.
	if _, err := s.GetMembership(ctx, "cmt-1", departing.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetMembership: got %v, want ErrNotFound", err)
	}

	// Both pending proposals are rejected, each with a variant owned by
	// the proposer.
	for _, tc := range []struct{ proposalID, variantID string }{
		{"prp-1", "rcp-var-1"},
		{"prp-2", "rcp-var-2"},
	} {
		p, err := s.GetProposal(ctx, tc.proposalID)
		if err != nil {
			t.Fatalf("GetProposal %s: %v", tc.proposalID, err)
		}
		if p.Status != domain.ProposalRejected {
			t.Errorf("%s Status: got %q, want REJECTED", tc.proposalID, p.Status)
		}
		v, err := s.GetRecipe(ctx, tc.variantID)
		if err != nil {
			t.Fatalf("GetRecipe %s: %v", tc.variantID, err)
		}
		if !v.IsVariant || v.CreatorID != proposer.ID {
			t.Errorf("%s: IsVariant=%v CreatorID=%q", tc.variantID, v.IsVariant, v.CreatorID)
		}
	}

	// The already-decided proposal is untouched.
	p, err := s.GetProposal(ctx, "prp-3")
	if err != nil {
		t.Fatalf("GetProposal prp-3: %v", err)
	}
	if p.Status != domain.ProposalAccepted {
		t.Errorf("prp-3 Status: got %q, want ACCEPTED", p.Status)
	}
}

func TestRemoveMemberCascadeDissolve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "usr-owner")
	seedCommunity(t, s, "cmt-1", owner.ID)
	recipe := seedRecipe(t, s, "rcp-1", owner.ID, "cmt-1")

	inv := &domain.Invitation{
		CommunityID:  "cmt-1",
		InviterID:    owner.ID,
		InviteeEmail: "friend@example.com",
		Status:       domain.InvitationPending,
	}
	inv.ID = "inv-1"
	inv.InitTimestamps()
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation: %v", err)
	}

	err := s.RemoveMemberCascade(ctx, store.RemoveMemberParams{
		CommunityID: "cmt-1",
		UserID:      owner.ID,
		Dissolve:    true,
	})
	if err != nil {
		t.Fatalf("RemoveMemberCascade: %v", err)
	}

	// Community is soft-deleted.
	if _, err := s.GetCommunity(ctx, "cmt-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCommunity: got %v, want ErrNotFound", err)
	}

	// Pending invitation is cancelled.
	gotInv, err := s.GetInvitation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvitation: %v", err)
	}
	if gotInv.Status != domain.InvitationCancelled {
		t.Errorf("invitation Status: got %q, want CANCELLED", gotInv.Status)
	}

	// Recipes are tombstoned but still fetchable.
	gotRecipe, err := s.GetRecipe(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if !gotRecipe.IsDeleted() {
		t.Error("recipe not soft-deleted")
	}
}

func TestShareRecipeCascadeAnalyticsFanOut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "usr-owner")
	seedCommunity(t, s, "cmt-1", owner.ID)
	seedCommunity(t, s, "cmt-2", owner.ID)
	seedCommunity(t, s, "cmt-3", owner.ID)

	source := seedRecipe(t, s, "rcp-a", owner.ID, "cmt-1")

	// First fork: A into cmt-2.
	f1 := makeTestRecipe("rcp-f1", owner.ID, "cmt-2")
	f1.OriginRecipeID = source.ID
	f1.SharedFromCommunityID = "cmt-1"
	err := s.ShareRecipeCascade(ctx, store.ShareRecipeParams{
		Fork:        f1,
		AncestorIDs: []string{source.ID},
	})
	if err != nil {
		t.Fatalf("first share: %v", err)
	}

	// Second fork: F1 into cmt-3; the whole lineage is credited.
	f2 := makeTestRecipe("rcp-f2", owner.ID, "cmt-3")
	f2.OriginRecipeID = f1.ID
	f2.SharedFromCommunityID = "cmt-2"
	err = s.ShareRecipeCascade(ctx, store.ShareRecipeParams{
		Fork:        f2,
		AncestorIDs: []string{f1.ID, source.ID},
	})
	if err != nil {
		t.Fatalf("second share: %v", err)
	}

	rootStats, err := s.GetRecipeAnalytics(ctx, source.ID)
	if err != nil {
		t.Fatalf("GetRecipeAnalytics root: %v", err)
	}
	if rootStats.Shares != 2 || rootStats.Forks != 2 {
		t.Errorf("root analytics: shares=%d forks=%d, want 2/2", rootStats.Shares, rootStats.Forks)
	}

	f1Stats, err := s.GetRecipeAnalytics(ctx, f1.ID)
	if err != nil {
		t.Fatalf("GetRecipeAnalytics f1: %v", err)
	}
	if f1Stats.Shares != 1 || f1Stats.Forks != 1 {
		t.Errorf("f1 analytics: shares=%d forks=%d, want 1/1", f1Stats.Shares, f1Stats.Forks)
	}

	// Unshared recipes report zero counters.
	f2Stats, err := s.GetRecipeAnalytics(ctx, f2.ID)
	if err != nil {
		t.Fatalf("GetRecipeAnalytics f2: %v", err)
	}
	if f2Stats.Shares != 0 || f2Stats.Forks != 0 {
		t.Errorf("f2 analytics: shares=%d forks=%d, want 0/0", f2Stats.Shares, f2Stats.Forks)
	}
}
