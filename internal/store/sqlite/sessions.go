package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
)

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, created_at, last_seen_at, ip_address, client_name`

// scanSession scans a row into a domain.Session.
func scanSession(scanner interface{ Scan(dest ...any) error }) (*domain.Session, error) {
	var sess domain.Session
	var (
		expiresAt  string
		createdAt  string
		lastSeenAt string
		ipAddress  sql.NullString
		clientName sql.NullString
	)

	err := scanner.Scan(
		&sess.ID,
		&sess.UserID,
		&sess.RefreshTokenHash,
		&expiresAt,
		&createdAt,
		&lastSeenAt,
		&ipAddress,
		&clientName,
	)
	if err != nil {
		return nil, err
	}

	if sess.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.LastSeenAt, err = parseTime(lastSeenAt); err != nil {
		return nil, err
	}
	if ipAddress.Valid {
		sess.IPAddress = ipAddress.String
	}
	if clientName.Valid {
		sess.ClientName = clientName.String
	}

	return &sess, nil
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, refresh_token_hash, expires_at, created_at, last_seen_at, ip_address, client_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		formatTime(session.ExpiresAt),
		formatTime(session.CreatedAt),
		formatTime(session.LastSeenAt),
		nullString(session.IPAddress),
		nullString(session.ClientName),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetSessionByTokenHash retrieves a session by refresh token hash.
// Returns store.ErrNotFound if no session matches.
func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = ?`, tokenHash)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// RotateSessionToken replaces a session's refresh token hash and extends
// its expiry. Also bumps last_seen_at.
func (s *Store) RotateSessionToken(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET refresh_token_hash = ?, expires_at = ?, last_seen_at = ?
		WHERE id = ?`,
		newHash, formatTime(expiresAt), formatTime(time.Now()), sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry.
// Returns the number of sessions removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, formatTime(time.Now()))
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
