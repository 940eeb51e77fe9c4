package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "setup",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/setup",
		Summary:     "Initial server setup",
		Description: "Creates the first root user. Can only be called once.",
		Tags:        []string{"Authentication"},
	}, s.handleSetup)

	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/register",
		Summary:     "Register new user",
		Description: "Creates a new user account on an already set up server",
		Tags:        []string{"Authentication"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Rotates a refresh token and returns a new token pair",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Revokes the session that owns the given refresh token",
		Tags:        []string{"Authentication"},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "currentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the authenticated user's profile",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCurrentUser)
}

// === DTOs ===

// SetupRequest is the request body for initial server setup.
type SetupRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=100" doc:"Root user display name"`
	Email       string `json:"email" validate:"required,email,max=254" doc:"Root user email address"`
	Password    string `json:"password" validate:"required,min=8,max=1024" doc:"Root user password"`
	ClientName  string `json:"client_name,omitempty" validate:"omitempty,max=100" doc:"Client name for session tracking"`
}

// SetupInput wraps the setup request with headers for Huma.
type SetupInput struct {
	Body          SetupRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=1,max=100" doc:"User display name"`
	Email       string `json:"email" validate:"required,email,max=254" doc:"User email address"`
	Password    string `json:"password" validate:"required,min=8,max=1024" doc:"User password"`
	ClientName  string `json:"client_name,omitempty" validate:"omitempty,max=100" doc:"Client name for session tracking"`
}

// RegisterInput wraps the register request with headers for Huma.
type RegisterInput struct {
	Body          RegisterRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email,max=254" doc:"User email"`
	Password   string `json:"password" validate:"required,max=1024" doc:"User password"`
	ClientName string `json:"client_name,omitempty" validate:"omitempty,max=100" doc:"Client name for session tracking"`
}

// LoginInput wraps the login request with headers for Huma.
type LoginInput struct {
	Body          LoginRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" doc:"Refresh token"`
}

// RefreshInput wraps the refresh request with headers for Huma.
type RefreshInput struct {
	Body          RefreshRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// LogoutRequest is the request body for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" doc:"Refresh token of the session to revoke"`
}

// LogoutInput wraps the logout request for Huma.
type LogoutInput struct {
	Body LogoutRequest
}

// UserResponse contains user information in API responses.
type UserResponse struct {
	ID          string    `json:"id" doc:"User ID"`
	Email       string    `json:"email" doc:"User email"`
	DisplayName string    `json:"display_name" doc:"Display name"`
	IsRoot      bool      `json:"is_root" doc:"Whether user is the root user"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// UserOutput wraps a user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// AuthResponse contains authentication tokens and user info.
type AuthResponse struct {
	AccessToken  string       `json:"access_token" doc:"PASETO access token"`
	RefreshToken string       `json:"refresh_token" doc:"Refresh token"`
	SessionID    string       `json:"session_id" doc:"Session identifier"`
	TokenType    string       `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn    int          `json:"expires_in" doc:"Access token expiry in seconds"`
	User         UserResponse `json:"user" doc:"Authenticated user"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// CurrentUserInput carries the auth header for the me endpoint.
type CurrentUserInput struct {
	Authorization string `header:"Authorization"`
}

// === Handlers ===

func (s *Server) handleSetup(ctx context.Context, input *SetupInput) (*AuthOutput, error) {
	ip := extractIP(input.XForwardedFor, input.XRealIP)
	if err := s.allowAuthAttempt(ip); err != nil {
		return nil, err
	}

	req := service.SetupRequest{
		DisplayName: input.Body.DisplayName,
		Email:       input.Body.Email,
		Password:    input.Body.Password,
	}

	user, sess, err := s.services.Auth.Setup(ctx, req, input.Body.ClientName, ip)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(user, sess)}, nil
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	ip := extractIP(input.XForwardedFor, input.XRealIP)
	if err := s.allowAuthAttempt(ip); err != nil {
		return nil, err
	}

	req := service.RegisterRequest{
		DisplayName: input.Body.DisplayName,
		Email:       input.Body.Email,
		Password:    input.Body.Password,
	}

	user, sess, err := s.services.Auth.Register(ctx, req, input.Body.ClientName, ip)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(user, sess)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	ip := extractIP(input.XForwardedFor, input.XRealIP)
	if err := s.allowAuthAttempt(ip); err != nil {
		return nil, err
	}

	req := service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	}

	user, sess, err := s.services.Auth.Login(ctx, req, input.Body.ClientName, ip)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(user, sess)}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	ip := extractIP(input.XForwardedFor, input.XRealIP)
	if err := s.allowAuthAttempt(ip); err != nil {
		return nil, err
	}

	sess, user, err := s.services.Session.RefreshSession(ctx, input.Body.RefreshToken, ip)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{Body: mapAuthResponse(user, sess)}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *LogoutInput) (*MessageOutput, error) {
	if err := s.services.Session.RevokeByRefreshToken(ctx, input.Body.RefreshToken); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Logged out successfully"}}, nil
}

func (s *Server) handleCurrentUser(ctx context.Context, input *CurrentUserInput) (*UserOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

// === Helpers ===

// allowAuthAttempt rate limits credential endpoints by client IP.
func (s *Server) allowAuthAttempt(ip string) error {
	if s.authRateLimiter == nil || s.authRateLimiter.Allow(ip) {
		return nil
	}
	return huma.Error429TooManyRequests("Too many authentication attempts. Please try again later.")
}

func mapAuthResponse(user *domain.User, sess *service.SessionResponse) AuthResponse {
	return AuthResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		SessionID:    sess.SessionID,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(sess.ExpiresAt).Seconds()),
		User:         mapUserResponse(user),
	}
}

func mapUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsRoot:      user.IsRoot,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
