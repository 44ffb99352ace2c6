package sqlite

import (
	"context"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

type linksRepo struct {
	db dbtx
}

func (r *linksRepo) CreateLink(ctx context.Context, link domain.TenantPropertyLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenant_property_links (id, tenant_id, property_id, source_token_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		link.ID, link.TenantID, link.PropertyID, link.SourceTokenID,
		boolToInt(link.Active), toNanos(link.CreatedAt),
	)
	return mapErr(err)
}

func (r *linksRepo) GetActiveLink(ctx context.Context, tenantID, propertyID string) (domain.TenantPropertyLink, error) {
	var (
		link      domain.TenantPropertyLink
		active    int
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, property_id, source_token_id, active, created_at
		FROM tenant_property_links
		WHERE tenant_id = ? AND property_id = ? AND active = 1`,
		tenantID, propertyID,
	).Scan(&link.ID, &link.TenantID, &link.PropertyID, &link.SourceTokenID, &active, &createdAt)
	if err != nil {
		return domain.TenantPropertyLink{}, mapErr(err)
	}
	link.Active = active == 1
	link.CreatedAt = fromNanos(createdAt)
	return link, nil
}

func (r *linksRepo) CountLinksByToken(ctx context.Context, tokenID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tenant_property_links WHERE source_token_id = ?`, tokenID,
	).Scan(&n)
	return n, mapErr(err)
}
