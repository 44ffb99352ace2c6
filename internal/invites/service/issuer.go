package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
	"github.com/aussiebroadwan/propinvite/pkg/cryptox"
	"github.com/aussiebroadwan/propinvite/pkg/idx"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

// maxCollisionRetries bounds fresh-token retries on a fingerprint collision.
const maxCollisionRetries = 3

// IssuePolicy bounds what issuers may request.
type IssuePolicy struct {
	DefaultTTL     time.Duration
	MaxTTL         time.Duration
	DefaultMaxUses int
	MaxUsesLimit   int
}

func DefaultIssuePolicy() IssuePolicy {
	return IssuePolicy{
		DefaultTTL:     7 * 24 * time.Hour,
		MaxTTL:         30 * 24 * time.Hour,
		DefaultMaxUses: 1,
		MaxUsesLimit:   50,
	}
}

type IssueRequest struct {
	PropertyID    string
	IssuerID      string
	TTL           time.Duration // zero means the policy default
	MaxUses       int           // zero means the policy default
	IntendedEmail string
}

// IssuedInvite carries the raw token exactly once, back to the issuer.
type IssuedInvite struct {
	Invite   domain.InviteToken
	RawToken string
}

// InviteIssuer creates, revokes and lists invites for property owners.
type InviteIssuer struct {
	Store  store.Store
	Codec  *cryptox.TokenCodec
	Policy IssuePolicy
	Retry  RetryPolicy
	Now    func() time.Time
}

// Issue creates a new active invite. The issuer must own the property.
func (s *InviteIssuer) Issue(ctx context.Context, req IssueRequest) (IssuedInvite, error) {
	log := slogx.FromContext(ctx)
	now := s.now()

	// 1. Apply defaults and bounds.
	policy := s.Policy
	if policy.MaxTTL <= 0 || policy.MaxUsesLimit <= 0 {
		policy = DefaultIssuePolicy()
	}
	ttl := req.TTL
	if ttl == 0 {
		ttl = policy.DefaultTTL
	}
	maxUses := req.MaxUses
	if maxUses == 0 {
		maxUses = policy.DefaultMaxUses
	}
	if req.PropertyID == "" || req.IssuerID == "" ||
		ttl <= 0 || ttl > policy.MaxTTL ||
		maxUses < 1 || maxUses > policy.MaxUsesLimit {
		log.Warn("invite issue rejected",
			slog.String("property_id", req.PropertyID),
			slog.Duration("ttl", ttl),
			slog.Int("max_uses", maxUses),
		)
		return IssuedInvite{}, ErrInvalidInviteRequest
	}

	// 2. Ownership is enforced here, not left to the datastore.
	if err := s.requireOwner(ctx, req.PropertyID, req.IssuerID); err != nil {
		return IssuedInvite{}, err
	}

	// 3. Generate and store; a fingerprint collision retries with a new token.
	inv := domain.InviteToken{
		PropertyID:    req.PropertyID,
		IssuerID:      req.IssuerID,
		IntendedEmail: domain.NormalizeEmail(req.IntendedEmail),
		MaxUses:       maxUses,
		Status:        domain.InviteActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
		UpdatedAt:     now,
	}

	for attempt := 1; ; attempt++ {
		raw, fp, err := s.Codec.IssueRaw()
		if err != nil {
			log.Error("token generation failed", slog.Any("error", err))
			return IssuedInvite{}, fmt.Errorf("issue invite: %w", err)
		}
		inv.ID = idx.NewAt(now).String()
		inv.Fingerprint = fp

		err = s.Retry.Do(ctx, func(ctx context.Context) error {
			return s.Store.Invites().CreateInvite(ctx, inv)
		})
		switch {
		case err == nil:
			log.Info("invite issued",
				slog.String("invite_id", inv.ID),
				slog.String("property_id", inv.PropertyID),
				slog.Int("max_uses", inv.MaxUses),
				slog.Time("expires_at", inv.ExpiresAt),
				slog.Bool("bound", inv.IntendedEmail != ""),
			)
			return IssuedInvite{Invite: inv, RawToken: raw}, nil
		case errors.Is(err, store.ErrAlreadyExists) && attempt < maxCollisionRetries:
			log.Warn("invite fingerprint collision, retrying", slog.Int("attempt", attempt))
			continue
		default:
			log.Error("failed to store invite", slog.Any("error", err))
			return IssuedInvite{}, err
		}
	}
}

// Revoke permanently revokes a token. Only its issuer may do so; revoking
// an already revoked token succeeds.
func (s *InviteIssuer) Revoke(ctx context.Context, tokenID, issuerID string) error {
	log := slogx.FromContext(ctx)

	id, err := idx.Parse(tokenID)
	if err != nil {
		return ErrNotFound
	}

	err = s.Retry.Do(ctx, func(ctx context.Context) error {
		return s.Store.Invites().RevokeInvite(ctx, id.String(), issuerID, s.now())
	})
	switch {
	case err == nil:
		log.Info("invite revoked", slog.String("invite_id", tokenID))
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrForbidden):
		log.Warn("invite revoke forbidden",
			slog.String("invite_id", tokenID),
			slog.String("caller", issuerID),
		)
		return ErrForbidden
	default:
		log.Error("failed to revoke invite", slog.Any("error", err))
		return err
	}
}

// List returns a property's invites for its owner, newest first.
func (s *InviteIssuer) List(ctx context.Context, propertyID, callerID string) ([]domain.InviteToken, error) {
	if err := s.requireOwner(ctx, propertyID, callerID); err != nil {
		return nil, err
	}

	var out []domain.InviteToken
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.Store.Invites().ListInvitesByProperty(ctx, propertyID)
		return err
	})
	return out, err
}

func (s *InviteIssuer) requireOwner(ctx context.Context, propertyID, callerID string) error {
	var prop domain.Property
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		prop, err = s.Store.Properties().GetProperty(ctx, propertyID)
		return err
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case err != nil:
		return err
	case prop.OwnerID != callerID:
		slogx.FromContext(ctx).Warn("caller does not own property",
			slog.String("property_id", propertyID),
			slog.String("caller", callerID),
		)
		return ErrForbidden
	}
	return nil
}

func (s *InviteIssuer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
