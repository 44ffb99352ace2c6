package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Caller is the identity presenting an invite token.
type Caller struct {
	ID            string // subject from the verified access token
	Email         string // normalised
	EmailVerified bool
	Authenticated bool
	RemoteIP      string
	DeviceID      string
}

// Anonymous returns an unauthenticated caller seen from ip.
func Anonymous(ip, deviceID string) Caller {
	return Caller{RemoteIP: ip, DeviceID: deviceID}
}

// RolloutKey is the stable identity used for percentage bucketing.
func (c Caller) RolloutKey() string {
	switch {
	case c.Authenticated && c.ID != "":
		return "user:" + c.ID
	case c.DeviceID != "":
		return "device:" + c.DeviceID
	default:
		return "ip:" + c.RemoteIP
	}
}

// MatchesEmail reports whether the caller holds a verified email equal to
// the normalised intended address.
func (c Caller) MatchesEmail(intended string) bool {
	if !c.Authenticated || !c.EmailVerified || c.Email == "" {
		return false
	}
	return NormalizeEmail(c.Email) == NormalizeEmail(intended)
}

// NormalizeEmail trims, applies NFKC and full Unicode case folding.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(email))
}
