package domain

import "time"

// Session represents a refresh-token session for a logged-in user.
// The access token itself is stateless; sessions exist so refresh tokens
// can be revoked and rotated.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
	ClientName       string    `json:"client_name,omitempty"`
}

// IsExpired returns true if the session's refresh token has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
