// Package service provides the business logic layer for the Simmer server.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/simmerapp/simmer-server/internal/auth"
	"github.com/simmerapp/simmer-server/internal/domain"
	domainerrors "github.com/simmerapp/simmer-server/internal/errors"
	"github.com/simmerapp/simmer-server/internal/store"
)

// SessionService manages refresh-token sessions.
type SessionService struct {
	store        store.Store
	tokenService *auth.TokenService
	logger       *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(store store.Store, tokenService *auth.TokenService, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:        store,
		tokenService: tokenService,
		logger:       logger,
	}
}

// SessionResponse contains the token pair issued for a session.
type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CreateSession issues a new access/refresh token pair for a user.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User, clientName, ipAddress string) (*SessionResponse, error) {
	accessToken, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt:        now.Add(s.tokenService.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        ipAddress,
		ClientName:       clientName,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &SessionResponse{
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.tokenService.AccessTokenDuration()),
	}, nil
}

// RefreshSession rotates a refresh token and issues a new token pair.
// The old refresh token stops working immediately.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken, ipAddress string) (*SessionResponse, *domain.User, error) {
	session, err := s.store.GetSessionByTokenHash(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("invalid refresh token")
		}
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}

	if session.IsExpired() {
		// Expired sessions are cleaned up lazily.
		if delErr := s.store.DeleteSession(ctx, session.ID); delErr != nil {
			s.logger.Warn("failed to delete expired session", "session_id", session.ID, "error", delErr)
		}
		return nil, nil, domainerrors.TokenExpired("refresh token expired")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("get session user: %w", err)
	}

	accessToken, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}
	newRefreshToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiry := time.Now().Add(s.tokenService.RefreshTokenDuration())
	if err := s.store.RotateSessionToken(ctx, session.ID, auth.HashRefreshToken(newRefreshToken), newExpiry); err != nil {
		return nil, nil, fmt.Errorf("rotate session token: %w", err)
	}

	return &SessionResponse{
		SessionID:    session.ID,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresAt:    time.Now().Add(s.tokenService.AccessTokenDuration()),
	}, user, nil
}

// RevokeByRefreshToken deletes the session holding a refresh token.
func (s *SessionService) RevokeByRefreshToken(ctx context.Context, refreshToken string) error {
	session, err := s.store.GetSessionByTokenHash(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Already gone; logout is idempotent.
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}
	return s.store.DeleteSession(ctx, session.ID)
}

// PruneExpired removes expired sessions.
func (s *SessionService) PruneExpired(ctx context.Context) error {
	n, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned expired sessions", "count", n)
	}
	return nil
}
