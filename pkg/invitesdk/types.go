package invitesdk

import "time"

// Failure reasons carried in the "reason" field of every unsuccessful
// response.
const (
	ReasonInvalid           = "invalid"
	ReasonExpired           = "expired"
	ReasonRevoked           = "revoked"
	ReasonCapacityReached   = "capacity_reached"
	ReasonWrongAccount      = "wrong_account"
	ReasonRateLimited       = "rate_limited"
	ReasonUnavailable       = "unavailable"
	ReasonLegacyPath        = "legacy_path"
	ReasonUnauthenticated   = "unauthenticated"
	ReasonInsufficientScope = "insufficient_scope"
	ReasonForbidden         = "forbidden"
	ReasonNotFound          = "not_found"
	ReasonInvalidRequest    = "invalid_request"
	ReasonInternal          = "internal"
)

// FailureResponse is the body of every non-2xx invite response.
type FailureResponse struct {
	OK                bool   `json:"ok"`
	Reason            string `json:"reason"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	Message           string `json:"message,omitempty"`
}

// ============================================================================
// Validate / Accept
// ============================================================================

type TokenRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

// PropertyPreview is what a prospective tenant sees before accepting.
type PropertyPreview struct {
	PropertyID     string `json:"property_id"`
	Name           string `json:"name"`
	AddressSummary string `json:"address_summary"`
	IssuerName     string `json:"issuer_name"`
}

type ValidateResponse struct {
	OK       bool            `json:"ok"`
	Property PropertyPreview `json:"property"`
}

type AcceptResponse struct {
	OK            bool   `json:"ok"`
	AlreadyLinked bool   `json:"already_linked"`
	PropertyID    string `json:"property_id"`
	LinkID        string `json:"link_id,omitempty"`
}

// ============================================================================
// Issuer operations
// ============================================================================

type IssueRequest struct {
	PropertyID string `json:"property_id" validate:"required,max=64"`

	// TTLSeconds and MaxUses fall back to the service defaults when zero.
	TTLSeconds    int    `json:"ttl_seconds,omitempty" validate:"gte=0"`
	MaxUses       int    `json:"max_uses,omitempty" validate:"gte=0"`
	IntendedEmail string `json:"intended_email,omitempty" validate:"omitempty,email,max=254"`
}

// IssueResponse carries the raw token. It is returned exactly once and
// cannot be recovered later.
type IssueResponse struct {
	OK        bool      `json:"ok"`
	InviteID  string    `json:"invite_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxUses   int       `json:"max_uses"`
}

type RevokeRequest struct {
	TokenID string `json:"token_id" validate:"required,max=64"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// InviteSummary describes an invite to its owner. It never includes the
// token or its fingerprint.
type InviteSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	MaxUses   int       `json:"max_uses"`
	UseCount  int       `json:"use_count"`
	Remaining int       `json:"remaining"`
	Bound     bool      `json:"bound"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ListInvitesResponse struct {
	OK      bool            `json:"ok"`
	Invites []InviteSummary `json:"invites"`
}

// ============================================================================
// Rollout administration
// ============================================================================

type RolloutChange struct {
	FromPercent int       `json:"from_percent"`
	ToPercent   int       `json:"to_percent"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	Automatic   bool      `json:"automatic"`
	CreatedAt   time.Time `json:"created_at"`
}

type RolloutResponse struct {
	OK        bool            `json:"ok"`
	Feature   string          `json:"feature"`
	Percent   int             `json:"percent"`
	UpdatedAt time.Time       `json:"updated_at"`
	UpdatedBy string          `json:"updated_by,omitempty"`
	History   []RolloutChange `json:"history"`
}

type SetRolloutRequest struct {
	Percent *int   `json:"percent" validate:"required,gte=0,lte=100"`
	Reason  string `json:"reason,omitempty" validate:"max=256"`
}

// Funnel is the trailing-window view the rollout monitor decides on.
// Latencies are in milliseconds.
type Funnel struct {
	Views            int                `json:"views"`
	ValidateSuccess  int                `json:"validate_success"`
	ValidateFail     int                `json:"validate_fail"`
	AcceptSuccess    int                `json:"accept_success"`
	AcceptFail       int                `json:"accept_fail"`
	AcceptRepeat     int                `json:"accept_repeat"`
	Conversion       float64            `json:"conversion"`
	ViewToValidate   float64            `json:"view_to_validate"`
	ValidateToAccept float64            `json:"validate_to_accept"`
	ErrorRate        float64            `json:"error_rate"`
	KindRates        map[string]float64 `json:"kind_rates"`
	LatencyP50Ms     float64            `json:"latency_p50_ms"`
	LatencyP95Ms     float64            `json:"latency_p95_ms"`
	LatencyP99Ms     float64            `json:"latency_p99_ms"`
}

type EvaluationResponse struct {
	OK          bool   `json:"ok"`
	Feature     string `json:"feature"`
	Mode        string `json:"mode"`
	Action      string `json:"action"`
	FromPercent int    `json:"from_percent"`
	ToPercent   int    `json:"to_percent"`
	Reason      string `json:"reason"`
	Funnel      Funnel `json:"funnel"`
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}
