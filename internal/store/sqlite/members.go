package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/simmerapp/simmer-server/internal/domain"
	"github.com/simmerapp/simmer-server/internal/store"
)

// RemoveMemberCascade removes a membership atomically, after resolving the
// departing member's orphaned proposals: each pending proposal against their
// recipes is rejected and its content forged into a variant owned by the
// proposer. When Dissolve is set the community is soft-deleted afterwards,
// its pending invitations cancelled and its recipes tombstoned.
//
// A proposal in the orphan batch that was decided concurrently is skipped
// rather than failing the whole batch; the departing member's removal must
// not be blocked by a racing accept.
func (s *Store) RemoveMemberCascade(ctx context.Context, params store.RemoveMemberParams) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, orphan := range params.Orphans {
			decidedAt := time.Now()
			if orphan.Proposal.DecidedAt != nil {
				decidedAt = *orphan.Proposal.DecidedAt
			}

			err := decideProposal(ctx, tx, orphan.Proposal.ID, domain.ProposalRejected, decidedAt)
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			if err != nil {
				return err
			}

			if err := forgeVariant(ctx, tx, orphan.Forge); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM memberships WHERE community_id = ? AND user_id = ?`,
			params.CommunityID, params.UserID)
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

		if !params.Dissolve {
			return nil
		}
		return dissolveCommunity(ctx, tx, params.CommunityID)
	})
}

// dissolveCommunity soft-deletes a community, cancels its pending
// invitations, and tombstones its recipes, inside an existing transaction.
func dissolveCommunity(ctx context.Context, tx *sql.Tx, communityID string) error {
	now := formatTime(time.Now())

	if _, err := tx.ExecContext(ctx, `
		UPDATE communities SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, communityID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE invitations SET status = ?, updated_at = ?
		WHERE community_id = ? AND status = ?`,
		string(domain.InvitationCancelled), now,
		communityID, string(domain.InvitationPending)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE recipes SET deleted_at = ?, updated_at = ?
		WHERE community_id = ? AND deleted_at IS NULL`, now, now, communityID); err != nil {
		return err
	}

	return nil
}
