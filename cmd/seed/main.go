// Package main provides a tool to seed the database with demo data.
//
// This creates a few users, a community, and a handful of recipes so that
// collaboration features can be exercised against a local server.
//
// Usage:
//
//	DATA_PATH=~/Simmer/data go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/simmerapp/simmer-server/internal/auth"
	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/id"
	"github.com/simmerapp/simmer-server/internal/store"
	"github.com/simmerapp/simmer-server/internal/store/sqlite"
	"github.com/simmerapp/simmer-server/internal/util"
)

const seedPassword = "SimmerDemo123!"

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Simmer/data")
	}
	dbPath := filepath.Join(dataPath, "simmer.db")

	fmt.Printf("Opening database at: %s\n", dbPath)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	count, err := s.CountUsers(ctx)
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	if count > 0 {
		log.Fatal("Database already has users; seeding is only supported on a fresh database.")
	}

	root := createUser(ctx, s, "Alex Rivera", "alex@example.com", true)
	marta := createUser(ctx, s, "Marta Kowalski", "marta@example.com", false)
	jun := createUser(ctx, s, "Jun Tanaka", "jun@example.com", false)

	community := createCommunity(ctx, s, root, "Sourdough Collective", "Slow fermentation enthusiasts")
	addMember(ctx, s, community, root, marta)
	addMember(ctx, s, community, root, jun)

	createPersonalRecipe(ctx, s, marta, "Weeknight Pierogi", []string{
		"Knead the dough and rest 30 minutes",
		"Fill with potato and cheese",
		"Boil until they float, then pan-fry",
	}, []domain.RecipeIngredient{
		{Name: "Flour", Quantity: 500, Unit: "g", Position: 0},
		{Name: "Potatoes", Quantity: 400, Unit: "g", Position: 1},
	})

	createPersonalRecipe(ctx, s, jun, "Shio Koji Chicken", []string{
		"Marinate chicken in shio koji overnight",
		"Grill over medium heat",
	}, []domain.RecipeIngredient{
		{Name: "Chicken thighs", Quantity: 600, Unit: "g", Position: 0},
		{Name: "Shio koji", Quantity: 3, Unit: "tbsp", Position: 1},
	})

	createCommunityRecipe(ctx, s, root, community, "Country Loaf", []string{
		"Mix levain, flour, and water; autolyse 1 hour",
		"Fold every 30 minutes for 3 hours",
		"Shape, proof overnight, bake in a dutch oven",
	}, []domain.RecipeIngredient{
		{Name: "Bread flour", Quantity: 900, Unit: "g", Position: 0},
		{Name: "Water", Quantity: 700, Unit: "ml", Position: 1},
		{Name: "Levain", Quantity: 180, Unit: "g", Position: 2},
		{Name: "Salt", Quantity: 20, Unit: "g", Position: 3},
	})

	fmt.Println("\nSeeding complete.")
	fmt.Printf("Log in with any of the demo accounts using password %q\n", seedPassword)
}

func createUser(ctx context.Context, s store.Store, displayName, email string, isRoot bool) *domain.User {
	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		log.Fatalf("Failed to generate user ID: %v", err)
	}

	user := &domain.User{
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: hash,
		IsRoot:       isRoot,
	}
	user.ID = userID
	user.InitTimestamps()

	if err := s.CreateUser(ctx, user); err != nil {
		log.Fatalf("Failed to create user %s: %v", email, err)
	}

	fmt.Printf("Created user: %s (%s)\n", displayName, email)
	return user
}

func createCommunity(ctx context.Context, s store.Store, owner *domain.User, name, description string) *domain.Community {
	communityID, err := id.Generate("cmt")
	if err != nil {
		log.Fatalf("Failed to generate community ID: %v", err)
	}
	membershipID, err := id.Generate("mem")
	if err != nil {
		log.Fatalf("Failed to generate membership ID: %v", err)
	}

	community := &domain.Community{
		Name:        name,
		Slug:        util.NormalizeSlug(name),
		Description: description,
		OwnerID:     owner.ID,
	}
	community.ID = communityID
	community.InitTimestamps()

	membership := &domain.Membership{
		ID:          membershipID,
		CommunityID: communityID,
		UserID:      owner.ID,
		Role:        domain.RoleModerator,
		JoinedAt:    time.Now(),
	}

	if err := s.CreateCommunity(ctx, community, membership); err != nil {
		log.Fatalf("Failed to create community %s: %v", name, err)
	}

	fmt.Printf("Created community: %s\n", name)
	return community
}

// addMember goes through the invitation flow so the seeded data matches what
// the server produces.
func addMember(ctx context.Context, s store.Store, community *domain.Community, inviter, invitee *domain.User) {
	invitationID, err := id.Generate("inv")
	if err != nil {
		log.Fatalf("Failed to generate invitation ID: %v", err)
	}
	membershipID, err := id.Generate("mem")
	if err != nil {
		log.Fatalf("Failed to generate membership ID: %v", err)
	}

	invitation := &domain.Invitation{
		CommunityID:  community.ID,
		InviterID:    inviter.ID,
		InviteeEmail: invitee.Email,
		Status:       domain.InvitationPending,
	}
	invitation.ID = invitationID
	invitation.InitTimestamps()

	if err := s.CreateInvitation(ctx, invitation); err != nil {
		log.Fatalf("Failed to create invitation for %s: %v", invitee.Email, err)
	}

	now := time.Now()
	invitation.Status = domain.InvitationAccepted
	invitation.RespondedAt = &now

	membership := &domain.Membership{
		ID:          membershipID,
		CommunityID: community.ID,
		UserID:      invitee.ID,
		Role:        domain.RoleMember,
		JoinedAt:    now,
	}

	if err := s.AcceptInvitation(ctx, invitation, membership); err != nil {
		log.Fatalf("Failed to accept invitation for %s: %v", invitee.Email, err)
	}

	fmt.Printf("Added member: %s -> %s\n", invitee.DisplayName, community.Name)
}

func createPersonalRecipe(ctx context.Context, s store.Store, creator *domain.User, title string, steps []string, ingredients []domain.RecipeIngredient) *domain.Recipe {
	recipeID, err := id.Generate("rcp")
	if err != nil {
		log.Fatalf("Failed to generate recipe ID: %v", err)
	}

	recipe := &domain.Recipe{
		Title:     title,
		Steps:     steps,
		Servings:  4,
		CreatorID: creator.ID,
	}
	recipe.ID = recipeID
	recipe.InitTimestamps()

	if err := s.CreateRecipe(ctx, recipe, ingredients); err != nil {
		log.Fatalf("Failed to create recipe %s: %v", title, err)
	}

	attachGlobalTag(ctx, s, recipe, creator, "weeknight")

	fmt.Printf("Created personal recipe: %s (%s)\n", title, creator.DisplayName)
	return recipe
}

// createCommunityRecipe performs the dual write the server does: a personal
// origin copy plus a community copy linked to it.
func createCommunityRecipe(ctx context.Context, s store.Store, creator *domain.User, community *domain.Community, title string, steps []string, ingredients []domain.RecipeIngredient) *domain.Recipe {
	personalID, err := id.Generate("rcp")
	if err != nil {
		log.Fatalf("Failed to generate recipe ID: %v", err)
	}
	communityID, err := id.Generate("rcp")
	if err != nil {
		log.Fatalf("Failed to generate recipe ID: %v", err)
	}

	personal := &domain.Recipe{
		Title:     title,
		Steps:     steps,
		Servings:  4,
		CreatorID: creator.ID,
	}
	personal.ID = personalID
	personal.InitTimestamps()

	communityCopy := &domain.Recipe{
		Title:          title,
		Steps:          steps,
		Servings:       4,
		CreatorID:      creator.ID,
		CommunityID:    community.ID,
		OriginRecipeID: personalID,
	}
	communityCopy.ID = communityID
	communityCopy.InitTimestamps()

	if err := s.CreateRecipePair(ctx, personal, communityCopy, ingredients); err != nil {
		log.Fatalf("Failed to create community recipe %s: %v", title, err)
	}

	fmt.Printf("Created community recipe: %s -> %s\n", title, community.Name)
	return communityCopy
}

// attachGlobalTag attaches a tag by name, reusing an existing global tag row
// when one matches.
func attachGlobalTag(ctx context.Context, s store.Store, recipe *domain.Recipe, creator *domain.User, name string) {
	slug := util.NormalizeSlug(name)

	candidates, err := s.FindTagCandidates(ctx, slug, recipe.CommunityID)
	if err != nil {
		log.Fatalf("Failed to look up tag %s: %v", name, err)
	}

	resolution := domain.ResolveTagName(recipe.CommunityID, candidates)
	if resolution.Reused != nil {
		if err := s.AttachRecipeTag(ctx, recipe.ID, resolution.Reused, false); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			log.Fatalf("Failed to attach tag %s: %v", name, err)
		}
		return
	}

	tagID, err := id.Generate("tag")
	if err != nil {
		log.Fatalf("Failed to generate tag ID: %v", err)
	}
	tag := &domain.Tag{
		Name:        name,
		Slug:        slug,
		Scope:       resolution.Create.Scope,
		Status:      resolution.Create.Status,
		CommunityID: resolution.Create.CommunityID,
		CreatedBy:   creator.ID,
	}
	tag.ID = tagID
	tag.InitTimestamps()

	if err := s.AttachRecipeTag(ctx, recipe.ID, tag, true); err != nil {
		log.Fatalf("Failed to attach tag %s: %v", name, err)
	}
}
