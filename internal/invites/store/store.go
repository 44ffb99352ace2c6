package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrCapacityExceeded is returned by TryConsume when the token has no
	// uses left.
	ErrCapacityExceeded = errors.New("store: capacity exceeded")

	// ErrInactive is returned by TryConsume when the token is revoked or
	// expired at the time of the update.
	ErrInactive = errors.New("store: token inactive")

	// ErrConflict means a compare-and-set lost against a concurrent writer;
	// the caller should re-read and decide again.
	ErrConflict = errors.New("store: concurrent modification")

	ErrForbidden = errors.New("store: forbidden")

	// ErrUnavailable wraps transient failures (timeouts, busy database).
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the root data access interface. Sub-repositories keep concerns
// tidy; Tx-scoped stores expose the same repositories.
type Store interface {
	Invites() Invites
	Links() Links
	Properties() Properties
	RolloutFlags() RolloutFlags
	RolloutAudit() RolloutAudit

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	// fn must only use the Tx it is given.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Invites interface {
	// CreateInvite inserts a new token. ErrAlreadyExists on fingerprint collision.
	CreateInvite(ctx context.Context, inv domain.InviteToken) error

	// GetInviteByFingerprint is a single indexed equality lookup.
	GetInviteByFingerprint(ctx context.Context, fingerprint string) (domain.InviteToken, error)

	GetInviteByID(ctx context.Context, id string) (domain.InviteToken, error)

	// ListInvitesByProperty returns every invite for a property, newest first.
	ListInvitesByProperty(ctx context.Context, propertyID string) ([]domain.InviteToken, error)

	// TryConsume atomically increments use_count when it still equals
	// expectedUseCount, capacity remains, the token is active and unexpired
	// at now. The token transitions to exhausted on its last use.
	// Returns the updated token, or ErrNotFound, ErrCapacityExceeded,
	// ErrInactive or ErrConflict.
	TryConsume(ctx context.Context, id string, expectedUseCount int, now time.Time) (domain.InviteToken, error)

	// RevokeInvite permanently revokes a token owned by issuerID.
	// ErrForbidden when issuerID is not the issuer, ErrNotFound when absent.
	RevokeInvite(ctx context.Context, id, issuerID string, now time.Time) error

	// ExpireInvites marks active tokens past their expiry as expired and
	// returns how many rows changed.
	ExpireInvites(ctx context.Context, now time.Time) (int64, error)
}

type Links interface {
	// CreateLink inserts an active link. ErrAlreadyExists when the pair is
	// already actively linked.
	CreateLink(ctx context.Context, link domain.TenantPropertyLink) error

	GetActiveLink(ctx context.Context, tenantID, propertyID string) (domain.TenantPropertyLink, error)

	CountLinksByToken(ctx context.Context, tokenID string) (int, error)
}

type Properties interface {
	GetProperty(ctx context.Context, id string) (domain.Property, error)
	GetProfile(ctx context.Context, id string) (domain.Profile, error)

	// Upserts exist for development seeding; production rows are owned by
	// the property management service.
	UpsertProperty(ctx context.Context, p domain.Property) error
	UpsertProfile(ctx context.Context, p domain.Profile) error
}

type RolloutFlags interface {
	// GetFlag returns ErrNotFound for unknown features.
	GetFlag(ctx context.Context, feature string) (domain.RolloutFlag, error)

	// SetFlag creates or overwrites a flag (manual override).
	SetFlag(ctx context.Context, flag domain.RolloutFlag) error

	// CompareAndSetPercent moves a flag from one percent to another only if
	// it still holds from. ErrConflict otherwise.
	CompareAndSetPercent(ctx context.Context, feature string, from, to int, actor string, now time.Time) error

	ListFlags(ctx context.Context) ([]domain.RolloutFlag, error)
}

type RolloutAudit interface {
	RecordChange(ctx context.Context, change domain.RolloutChange) error

	// ListChanges returns the newest changes for a feature first.
	ListChanges(ctx context.Context, feature string, limit int) ([]domain.RolloutChange, error)
}
