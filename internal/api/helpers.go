package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/simmerapp/simmer-server/internal/store"
)

// authenticateRequest validates the Authorization header and returns the user ID.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (string, error) {
	if authHeader == "" {
		return "", huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", huma.Error401Unauthorized("Invalid authorization header format")
	}

	claims, err := s.services.Auth.VerifyAccessToken(parts[1])
	if err != nil {
		return "", huma.Error401Unauthorized("Invalid or expired token")
	}

	return claims.UserID, nil
}

// pageParams builds pagination parameters from query inputs, applying
// defaults for missing values.
func pageParams(limit, offset int) store.PaginationParams {
	page := store.DefaultPaginationParams()
	if limit > 0 {
		page.Limit = limit
	}
	if offset > 0 {
		page.Offset = offset
	}
	page.Validate()
	return page
}

// extractIP returns the client IP from proxy headers, preferring the first
// entry of X-Forwarded-For.
func extractIP(xForwardedFor, xRealIP string) string {
	if xForwardedFor != "" {
		for i := 0; i < len(xForwardedFor); i++ {
			if xForwardedFor[i] == ',' {
				return xForwardedFor[:i]
			}
		}
		return xForwardedFor
	}
	return xRealIP
}
