package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
)

const inviteColumns = `id, property_id, issuer_id, token_fingerprint, intended_email,
	max_uses, use_count, status, created_at, expires_at, updated_at`

type invitesRepo struct {
	db dbtx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (domain.InviteToken, error) {
	var (
		inv                            domain.InviteToken
		intended                       sql.NullString
		status                         string
		createdAt, expiresAt, updateAt int64
	)
	err := row.Scan(
		&inv.ID, &inv.PropertyID, &inv.IssuerID, &inv.Fingerprint, &intended,
		&inv.MaxUses, &inv.UseCount, &status, &createdAt, &expiresAt, &updateAt,
	)
	if err != nil {
		return domain.InviteToken{}, err
	}
	inv.IntendedEmail = mapNullString(intended)
	inv.Status = domain.InviteStatus(status)
	inv.CreatedAt = fromNanos(createdAt)
	inv.ExpiresAt = fromNanos(expiresAt)
	inv.UpdatedAt = fromNanos(updateAt)
	return inv, nil
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.InviteToken) error {
	status := inv.Status
	if status == "" {
		status = domain.InviteActive
	}
	updatedAt := inv.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = inv.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invite_tokens (`+inviteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.PropertyID, inv.IssuerID, inv.Fingerprint, mapStringNull(inv.IntendedEmail),
		inv.MaxUses, inv.UseCount, string(status),
		toNanos(inv.CreatedAt), toNanos(inv.ExpiresAt), toNanos(updatedAt),
	)
	return mapErr(err)
}

func (r *invitesRepo) GetInviteByFingerprint(ctx context.Context, fingerprint string) (domain.InviteToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invite_tokens WHERE token_fingerprint = ?`, fingerprint)
	inv, err := scanInvite(row)
	if err != nil {
		return domain.InviteToken{}, mapErr(err)
	}
	return inv, nil
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.InviteToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invite_tokens WHERE id = ?`, id)
	inv, err := scanInvite(row)
	if err != nil {
		return domain.InviteToken{}, mapErr(err)
	}
	return inv, nil
}

func (r *invitesRepo) ListInvitesByProperty(ctx context.Context, propertyID string) ([]domain.InviteToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+inviteColumns+` FROM invite_tokens
		WHERE property_id = ?
		ORDER BY created_at DESC, id DESC`, propertyID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.InviteToken
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, inv)
	}
	return out, mapErr(rows.Err())
}

func (r *invitesRepo) TryConsume(
	ctx context.Context,
	id string,
	expectedUseCount int,
	now time.Time,
) (domain.InviteToken, error) {
	// SET expressions see the pre-update row, so use_count + 1 is the new count.
	row := r.db.QueryRowContext(ctx, `
		UPDATE invite_tokens
		SET use_count  = use_count + 1,
		    status     = CASE WHEN use_count + 1 >= max_uses THEN 'exhausted' ELSE status END,
		    updated_at = ?
		WHERE id = ?
		  AND use_count = ?
		  AND use_count < max_uses
		  AND status = 'active'
		  AND expires_at > ?
		RETURNING `+inviteColumns,
		toNanos(now), id, expectedUseCount, toNanos(now),
	)
	inv, err := scanInvite(row)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.InviteToken{}, mapErr(err)
	}

	// Nothing matched: work out which guard failed.
	cur, err := r.GetInviteByID(ctx, id)
	if err != nil {
		return domain.InviteToken{}, err
	}
	switch {
	case cur.Expired(now), cur.Status == domain.InviteRevoked, cur.Status == domain.InviteExpired:
		return cur, store.ErrInactive
	case cur.Exhausted():
		return cur, store.ErrCapacityExceeded
	default:
		return cur, store.ErrConflict
	}
}

func (r *invitesRepo) RevokeInvite(ctx context.Context, id, issuerID string, now time.Time) error {
	inv, err := r.GetInviteByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.IssuerID != issuerID {
		return store.ErrForbidden
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE invite_tokens
		SET status = 'revoked', updated_at = ?
		WHERE id = ? AND status <> 'revoked'`,
		toNanos(now), id)
	return mapErr(err)
}

func (r *invitesRepo) ExpireInvites(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invite_tokens
		SET status = 'expired', updated_at = ?
		WHERE status = 'active' AND expires_at <= ?`,
		toNanos(now), toNanos(now))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
