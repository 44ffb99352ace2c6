package app

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
	"github.com/aussiebroadwan/propinvite/pkg/validate"
)

// Seed is the development fixture format. Property and profile rows are
// owned by other services in production.
type Seed struct {
	Profiles   []SeedProfile  `yaml:"profiles" validate:"dive"`
	Properties []SeedProperty `yaml:"properties" validate:"dive"`
}

type SeedProfile struct {
	ID          string `yaml:"id" validate:"required"`
	DisplayName string `yaml:"display_name" validate:"required"`
}

type SeedProperty struct {
	ID          string `yaml:"id" validate:"required"`
	OwnerID     string `yaml:"owner_id" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	AddressLine string `yaml:"address_line"`
	Suburb      string `yaml:"suburb"`
	Region      string `yaml:"region"`
}

func ReadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	if err := validate.Struct(seed); err != nil {
		return Seed{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return seed, nil
}

// Apply upserts the seed in one transaction, profiles first so owners exist
// before their properties.
func (s Seed) Apply(ctx context.Context, st store.Store) error {
	return st.WithTx(ctx, func(tx store.Tx) error {
		for _, p := range s.Profiles {
			if err := tx.Properties().UpsertProfile(ctx, domain.Profile{ID: p.ID, DisplayName: p.DisplayName}); err != nil {
				return fmt.Errorf("seed profile %s: %w", p.ID, err)
			}
		}
		for _, p := range s.Properties {
			if err := tx.Properties().UpsertProperty(ctx, domain.Property{
				ID:          p.ID,
				OwnerID:     p.OwnerID,
				Name:        p.Name,
				AddressLine: p.AddressLine,
				Suburb:      p.Suburb,
				Region:      p.Region,
			}); err != nil {
				return fmt.Errorf("seed property %s: %w", p.ID, err)
			}
		}
		return nil
	})
}
