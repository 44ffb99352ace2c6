package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/propinvite/internal/invites/domain"
	"github.com/aussiebroadwan/propinvite/pkg/httpx"
)

// DeviceIDHeader carries a stable per-install identifier from the apps. It
// only feeds rollout bucketing for anonymous callers.
const DeviceIDHeader = "X-Device-ID"

// callerFromRequest builds the service caller from verified claims placed by
// the authn middlewares. Nothing unverified is trusted for identity.
func callerFromRequest(r *http.Request, trustProxy bool) domain.Caller {
	ip := httpx.ClientIP(r, trustProxy)
	device := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
	if len(device) > 128 {
		device = device[:128]
	}

	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		return domain.Anonymous(ip, device)
	}
	return domain.Caller{
		ID:            claims.Subject,
		Email:         domain.NormalizeEmail(claims.Email),
		EmailVerified: claims.EmailVerified,
		Authenticated: true,
		RemoteIP:      ip,
		DeviceID:      device,
	}
}
