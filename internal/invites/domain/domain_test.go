package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := InviteToken{MaxUses: 2, UseCount: 0, Status: InviteActive, ExpiresAt: now.Add(time.Hour)}

	tests := []struct {
		name string
		mut  func(*InviteToken)
		want InviteStatus
	}{
		{"active", func(*InviteToken) {}, InviteActive},
		{"expires exactly now", func(t *InviteToken) { t.ExpiresAt = now }, InviteExpired},
		{"one nanosecond left", func(t *InviteToken) { t.ExpiresAt = now.Add(time.Nanosecond) }, InviteActive},
		{"revoked", func(t *InviteToken) { t.Status = InviteRevoked }, InviteRevoked},
		{"capacity used", func(t *InviteToken) { t.UseCount = 2 }, InviteExhausted},
		{"stored exhausted", func(t *InviteToken) { t.Status = InviteExhausted }, InviteExhausted},
		{"expired beats revoked", func(t *InviteToken) {
			t.Status = InviteRevoked
			t.ExpiresAt = now.Add(-time.Second)
		}, InviteExpired},
		{"revoked beats exhausted", func(t *InviteToken) {
			t.Status = InviteRevoked
			t.UseCount = 2
		}, InviteRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := base
			tt.mut(&tok)
			require.Equal(t, tt.want, tok.EffectiveStatus(now))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "tenant@example.com", NormalizeEmail("  Tenant@Example.COM "))
	require.Equal(t, "strasse@example.com", NormalizeEmail("STRASSE@example.com"))
	require.Equal(t, "tenant@example.com", NormalizeEmail("ｔｅｎａｎｔ@example.com"), "fullwidth forms fold under NFKC")
	require.Equal(t, "", NormalizeEmail("   "))
}

func TestCallerMatchesEmail(t *testing.T) {
	verified := Caller{ID: "u1", Email: "Tenant@Example.com", EmailVerified: true, Authenticated: true}
	require.True(t, verified.MatchesEmail("tenant@example.com"))
	require.False(t, verified.MatchesEmail("other@example.com"))

	unverified := verified
	unverified.EmailVerified = false
	require.False(t, unverified.MatchesEmail("tenant@example.com"))

	require.False(t, Anonymous("10.0.0.1", "").MatchesEmail("tenant@example.com"))
}

func TestRolloutKey(t *testing.T) {
	require.Equal(t, "user:u1", Caller{ID: "u1", Authenticated: true, DeviceID: "d"}.RolloutKey())
	require.Equal(t, "device:d", Anonymous("10.0.0.1", "d").RolloutKey())
	require.Equal(t, "ip:10.0.0.1", Anonymous("10.0.0.1", "").RolloutKey())
}

func TestAddressSummary(t *testing.T) {
	require.Equal(t, "Fitzroy, VIC", Property{AddressLine: "1 Smith St", Suburb: "Fitzroy", Region: "VIC"}.AddressSummary())
	require.Equal(t, "VIC", Property{Region: "VIC"}.AddressSummary())
}
