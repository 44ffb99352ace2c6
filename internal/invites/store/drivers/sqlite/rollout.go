package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
)

type rolloutFlagsRepo struct {
	db dbtx
}

func (r *rolloutFlagsRepo) GetFlag(ctx context.Context, feature string) (domain.RolloutFlag, error) {
	var (
		f         domain.RolloutFlag
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT feature_name, percent, updated_at, updated_by
		FROM rollout_flags WHERE feature_name = ?`, feature,
	).Scan(&f.FeatureName, &f.Percent, &updatedAt, &f.UpdatedBy)
	if err != nil {
		return domain.RolloutFlag{}, mapErr(err)
	}
	f.UpdatedAt = fromNanos(updatedAt)
	return f, nil
}

func (r *rolloutFlagsRepo) SetFlag(ctx context.Context, flag domain.RolloutFlag) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rollout_flags (feature_name, percent, updated_at, updated_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (feature_name) DO UPDATE SET
			percent    = excluded.percent,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by`,
		flag.FeatureName, domain.ClampPercent(flag.Percent), toNanos(flag.UpdatedAt), flag.UpdatedBy,
	)
	return mapErr(err)
}

func (r *rolloutFlagsRepo) CompareAndSetPercent(
	ctx context.Context,
	feature string,
	from, to int,
	actor string,
	now time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rollout_flags
		SET percent = ?, updated_at = ?, updated_by = ?
		WHERE feature_name = ? AND percent = ?`,
		domain.ClampPercent(to), toNanos(now), actor, feature, from,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *rolloutFlagsRepo) ListFlags(ctx context.Context) ([]domain.RolloutFlag, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT feature_name, percent, updated_at, updated_by
		FROM rollout_flags ORDER BY feature_name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.RolloutFlag
	for rows.Next() {
		var (
			f         domain.RolloutFlag
			updatedAt int64
		)
		if err := rows.Scan(&f.FeatureName, &f.Percent, &updatedAt, &f.UpdatedBy); err != nil {
			return nil, mapErr(err)
		}
		f.UpdatedAt = fromNanos(updatedAt)
		out = append(out, f)
	}
	return out, mapErr(rows.Err())
}

type rolloutAuditRepo struct {
	db dbtx
}

func (r *rolloutAuditRepo) RecordChange(ctx context.Context, c domain.RolloutChange) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rollout_audit (id, feature_name, from_percent, to_percent, reason, actor, automatic, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FeatureName, c.FromPercent, c.ToPercent, c.Reason, c.Actor,
		boolToInt(c.Automatic), toNanos(c.CreatedAt),
	)
	return mapErr(err)
}

func (r *rolloutAuditRepo) ListChanges(ctx context.Context, feature string, limit int) ([]domain.RolloutChange, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, feature_name, from_percent, to_percent, reason, actor, automatic, created_at
		FROM rollout_audit
		WHERE feature_name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, feature, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.RolloutChange
	for rows.Next() {
		var (
			c         domain.RolloutChange
			automatic int
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.FeatureName, &c.FromPercent, &c.ToPercent,
			&c.Reason, &c.Actor, &automatic, &createdAt); err != nil {
			return nil, mapErr(err)
		}
		c.Automatic = automatic == 1
		c.CreatedAt = fromNanos(createdAt)
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}
