package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simmerapp/simmer-server/internal/auth"
	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
	"github.com/simmerapp/simmer-server/internal/id"
	"github.com/simmerapp/simmer-server/internal/store"
	"github.com/simmerapp/simmer-server/internal/validation"
)

// AuthService handles registration, login, and token verification.
type AuthService struct {
	store        store.Store
	tokenService *auth.TokenService
	sessions     *SessionService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store store.Store, tokenService *auth.TokenService, sessions *SessionService, validator *validation.Validator, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		sessions:     sessions,
		validator:    validator,
		logger:       logger,
	}
}

// SetupRequest bootstraps the first (root) account on a fresh install.
type SetupRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=8,max=1024"`
}

// RegisterRequest creates a regular account.
type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=100"`
	Email       string `json:"email"        validate:"required,email"`
	Password    string `json:"password"     validate:"required,min=8,max=1024"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Setup creates the root account. It only works while the server has no
// users at all; afterwards it returns an already-configured error.
func (s *AuthService) Setup(ctx context.Context, req SetupRequest, clientName, ipAddress string) (*domain.User, *SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, nil, err
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil, nil, domainerrors.AlreadyConfigured("server already has an account")
	}

	user, err := s.createUser(ctx, req.DisplayName, req.Email, req.Password, true)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.CreateSession(ctx, user, clientName, ipAddress)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("root account created", "user_id", user.ID)
	return user, session, nil
}

// Register creates a new account and logs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, clientName, ipAddress string) (*domain.User, *SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, nil, err
	}

	user, err := s.createUser(ctx, req.DisplayName, req.Email, req.Password, false)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.CreateSession(ctx, user, clientName, ipAddress)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, session, nil
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, clientName, ipAddress string) (*domain.User, *SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Same error as a bad password so emails can't be probed.
			return nil, nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	session, err := s.sessions.CreateSession(ctx, user, clientName, ipAddress)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// VerifyAccessToken validates an access token and returns its claims.
func (s *AuthService) VerifyAccessToken(tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token")
	}
	return claims, nil
}

// GetUser returns a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, displayName, email, password string, isRoot bool) (*domain.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		DisplayName:  displayName,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		IsRoot:       isRoot,
	}
	user.ID = userID
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
