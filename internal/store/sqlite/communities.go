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

const communityColumns = `id, name, slug, description, owner_id, created_at, updated_at, deleted_at`

// scanCommunity scans a row into a domain.Community.
func scanCommunity(scanner interface{ Scan(dest ...any) error }) (*domain.Community, error) {
	var c domain.Community
	var (
		description sql.NullString
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
	)

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&c.Slug,
		&description,
		&c.OwnerID,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		c.Description = description.String
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if c.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

// scanMembership scans a row into a domain.Membership.
func scanMembership(scanner interface{ Scan(dest ...any) error }) (*domain.Membership, error) {
	var m domain.Membership
	var (
		role     string
		joinedAt string
	)

	if err := scanner.Scan(&m.ID, &m.CommunityID, &m.UserID, &role, &joinedAt); err != nil {
		return nil, err
	}

	m.Role = domain.MemberRole(role)
	var err error
	if m.JoinedAt, err = parseTime(joinedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// insertMembership inserts a membership row using any execer (db or tx).
func insertMembership(ctx context.Context, ex interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, m *domain.Membership) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO memberships (id, community_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.CommunityID, m.UserID, string(m.Role), formatTime(m.JoinedAt))
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

// CreateCommunity inserts a community together with its owner membership
// in one transaction.
// Returns store.ErrAlreadyExists if the slug is taken.
func (s *Store) CreateCommunity(ctx context.Context, community *domain.Community, owner *domain.Membership) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO communities (id, name, slug, description, owner_id, created_at, updated_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			community.ID,
			community.Name,
			community.Slug,
			nullString(community.Description),
			community.OwnerID,
			formatTime(community.CreatedAt),
			formatTime(community.UpdatedAt),
			nullTimeString(community.DeletedAt),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return store.ErrAlreadyExists
			}
			return err
		}
		return insertMembership(ctx, tx, owner)
	})
}

// GetCommunity retrieves a community by ID.
// Returns store.ErrNotFound if it does not exist or is dissolved.
func (s *Store) GetCommunity(ctx context.Context, id string) (*domain.Community, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+communityColumns+` FROM communities WHERE id = ? AND deleted_at IS NULL`, id)

	community, err := scanCommunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return community, nil
}

// ListCommunitiesForUser returns all communities the user is a member of.
func (s *Store) ListCommunitiesForUser(ctx context.Context, userID string) ([]*domain.Community, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.slug, c.description, c.owner_id, c.created_at, c.updated_at, c.deleted_at
		FROM communities c
		JOIN memberships m ON m.community_id = c.id
		WHERE m.user_id = ? AND c.deleted_at IS NULL
		ORDER BY c.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var communities []*domain.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		communities = append(communities, c)
	}
	return communities, rows.Err()
}

// GetMembership retrieves a user's membership in a community.
// Returns store.ErrNotFound if the user is not a member.
func (s *Store) GetMembership(ctx context.Context, communityID, userID string) (*domain.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, community_id, user_id, role, joined_at
		FROM memberships WHERE community_id = ? AND user_id = ?`, communityID, userID)

	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMemberships returns all memberships of a community ordered by join time.
func (s *Store) ListMemberships(ctx context.Context, communityID string) ([]*domain.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, community_id, user_id, role, joined_at
		FROM memberships WHERE community_id = ? ORDER BY joined_at ASC`, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// CountMembers returns the number of members in a community.
func (s *Store) CountMembers(ctx context.Context, communityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE community_id = ?`, communityID).Scan(&count)
	return count, err
}

// CountModerators returns the number of moderators in a community.
func (s *Store) CountModerators(ctx context.Context, communityID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships
		WHERE community_id = ? AND role = ?`, communityID, string(domain.RoleModerator)).Scan(&count)
	return count, err
}

// UpdateMembershipRole changes a member's role.
// Returns store.ErrNotFound if the membership does not exist.
func (s *Store) UpdateMembershipRole(ctx context.Context, communityID, userID string, role domain.MemberRole) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memberships SET role = ? WHERE community_id = ? AND user_id = ?`,
		string(role), communityID, userID)
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

// CreateInvitation inserts an invitation.
func (s *Store) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (id, community_id, inviter_id, invitee_email, status, responded_at, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.CommunityID,
		inv.InviterID,
		inv.InviteeEmail,
		string(inv.Status),
		nullTimeString(inv.RespondedAt),
		formatTime(inv.CreatedAt),
		formatTime(inv.UpdatedAt),
		nullTimeString(inv.DeletedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

const invitationColumns = `id, community_id, inviter_id, invitee_email, status, responded_at, created_at, updated_at, deleted_at`

// scanInvitation scans a row into a domain.Invitation.
func scanInvitation(scanner interface{ Scan(dest ...any) error }) (*domain.Invitation, error) {
	var inv domain.Invitation
	var (
		status      string
		respondedAt sql.NullString
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
	)

	err := scanner.Scan(
		&inv.ID,
		&inv.CommunityID,
		&inv.InviterID,
		&inv.InviteeEmail,
		&status,
		&respondedAt,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = domain.InvitationStatus(status)
	if inv.RespondedAt, err = parseNullableTime(respondedAt); err != nil {
		return nil, err
	}
	if inv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if inv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if inv.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &inv, nil
}

// GetInvitation retrieves an invitation by ID.
func (s *Store) GetInvitation(ctx context.Context, id string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)

	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetPendingInvitation retrieves the pending invitation for an email in a
// community, if one exists.
func (s *Store) GetPendingInvitation(ctx context.Context, communityID, email string) (*domain.Invitation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE community_id = ? AND invitee_email = ? AND status = ?`,
		communityID, email, string(domain.InvitationPending))

	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// AcceptInvitation marks an invitation accepted and adds the membership in
// one transaction. The status flip is guarded so a cancelled or already
// accepted invitation cannot be accepted again.
func (s *Store) AcceptInvitation(ctx context.Context, inv *domain.Invitation, membership *domain.Membership) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE invitations SET status = ?, responded_at = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(domain.InvitationAccepted),
			formatTime(time.Now()),
			formatTime(time.Now()),
			inv.ID,
			string(domain.InvitationPending),
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrConflict
		}
		return insertMembership(ctx, tx, membership)
	})
}
