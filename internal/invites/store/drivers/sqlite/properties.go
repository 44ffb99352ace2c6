package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

type propertiesRepo struct {
	db dbtx
}

func (r *propertiesRepo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	var p domain.Property
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, address_line, suburb, region
		FROM properties WHERE id = ?`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.AddressLine, &p.Suburb, &p.Region)
	if err != nil {
		return domain.Property{}, mapErr(err)
	}
	return p, nil
}

func (r *propertiesRepo) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, display_name FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.DisplayName)
	if err != nil {
		return domain.Profile{}, mapErr(err)
	}
	return p, nil
}

func (r *propertiesRepo) UpsertProperty(ctx context.Context, p domain.Property) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO properties (id, owner_id, name, address_line, suburb, region, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			owner_id     = excluded.owner_id,
			name         = excluded.name,
			address_line = excluded.address_line,
			suburb       = excluded.suburb,
			region       = excluded.region`,
		p.ID, p.OwnerID, p.Name, p.AddressLine, p.Suburb, p.Region, toNanos(time.Now()),
	)
	return mapErr(err)
}

func (r *propertiesRepo) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name`,
		p.ID, p.DisplayName, toNanos(time.Now()),
	)
	return mapErr(err)
}
