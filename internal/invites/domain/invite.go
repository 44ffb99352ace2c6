package domain

import "time"

type InviteStatus string

const (
	InviteActive    InviteStatus = "active"
	InviteRevoked   InviteStatus = "revoked"
	InviteExhausted InviteStatus = "exhausted"
	InviteExpired   InviteStatus = "expired"
)

// InviteToken is the stored side of an invite. The raw token is never kept;
// Fingerprint is the keyed hash used for lookup. Rows are never deleted.
type InviteToken struct {
	ID            string
	PropertyID    string
	IssuerID      string
	Fingerprint   string
	IntendedEmail string // normalised; empty means any identity may accept
	MaxUses       int
	UseCount      int
	Status        InviteStatus // stored status; expired is set lazily by housekeeping
	CreatedAt     time.Time
	ExpiresAt     time.Time
	UpdatedAt     time.Time
}

// Expired reports whether the token is past its expiry. A token is usable
// only while now < ExpiresAt, so the boundary instant itself is expired.
func (t InviteToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t InviteToken) Exhausted() bool {
	return t.Status == InviteExhausted || t.UseCount >= t.MaxUses
}

func (t InviteToken) Remaining() int {
	return max(t.MaxUses-t.UseCount, 0)
}

// EffectiveStatus folds expiry and capacity into the stored status. When more
// than one applies, expiry wins, then revocation, then capacity.
func (t InviteToken) EffectiveStatus(now time.Time) InviteStatus {
	switch {
	case t.Expired(now):
		return InviteExpired
	case t.Status == InviteRevoked:
		return InviteRevoked
	case t.Exhausted():
		return InviteExhausted
	default:
		return InviteActive
	}
}

// TenantPropertyLink records that a tenant joined a property through an invite.
// At most one active link exists per (TenantID, PropertyID).
type TenantPropertyLink struct {
	ID            string
	TenantID      string
	PropertyID    string
	SourceTokenID string
	Active        bool
	CreatedAt     time.Time
}
