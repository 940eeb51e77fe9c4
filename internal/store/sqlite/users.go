package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
)

const userColumns = `id, display_name, email, password_hash, is_root, created_at, updated_at, deleted_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User
	var (
		isRoot    int
		createdAt string
		updatedAt string
		deletedAt sql.NullString
	)

	err := scanner.Scan(
		&u.ID,
		&u.DisplayName,
		&u.Email,
		&u.PasswordHash,
		&isRoot,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	u.IsRoot = isRoot != 0
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if u.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the email is already taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, is_root, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		boolToInt(user.IsRoot),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		nullTimeString(user.DeletedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
// Returns store.ErrNotFound if no user has that email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CountUsers returns the number of non-deleted users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
