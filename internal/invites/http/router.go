package http

import (
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/propinvite/api/invites" // Swagger docs
	"github.com/aussiebroadwan/propinvite/internal/invites/metrics"
	"github.com/aussiebroadwan/propinvite/internal/invites/service"
	"github.com/aussiebroadwan/propinvite/internal/invites/store"
	"github.com/aussiebroadwan/propinvite/pkg/httpx"
	"github.com/aussiebroadwan/propinvite/pkg/jwtx"
	"github.com/aussiebroadwan/propinvite/pkg/slogx"
)

// Scopes checked on issuer and operator endpoints.
const (
	ScopeInvitesRead  = "invites:read"
	ScopeInvitesWrite = "invites:write"
	ScopeRolloutRead  = "rollout:read"
	ScopeRolloutWrite = "rollout:write"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	trustProxy   bool

	store      store.Store
	Issuer     *service.InviteIssuer
	Validator  *service.InviteValidator
	Acceptor   *service.InviteAcceptor
	Controller *service.RolloutController
	Metrics    *metrics.Metrics // optional

	// Gate routes validate and accept between this service and the legacy
	// flow. Nil serves every request here.
	Gate    *service.RolloutGate
	Feature string
	Legacy  http.Handler // nil answers bucketed-out requests with 421

	// FailureFloor is the minimum duration of a failed anonymous validate.
	FailureFloor time.Duration
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	trustProxy bool,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		trustProxy:   trustProxy,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerInvites()
	r.registerIssuer()
	r.registerRollout()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Property Invite Service API
//	@version		0.1.0
//	@description	Issue, preview and redeem property invite tokens, and steer the staged rollout of the invite flow.
//	@description
//	@description				Every failure body has the shape {"ok": false, "reason": "..."}.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/propinvite
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token from the auth backend. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h on the mux, counting responses when metrics are on.
func (r *Router) handle(pattern string, h http.Handler) {
	if r.Metrics != nil {
		h = r.Metrics.Instrument(pattern, h)
	}
	r.Mux.Handle(pattern, h)
}

func (r *Router) registerInvites() {
	validate := &ValidateHandler{
		Validator:    r.Validator,
		TrustProxy:   r.trustProxy,
		FailureFloor: r.FailureFloor,
	}
	accept := &AcceptHandler{
		Acceptor:   r.Acceptor,
		TrustProxy: r.trustProxy,
	}

	// POST /invites/validate - public preview; a bearer token is optional
	// and only changes whether wrong_account is reported.
	r.handle("POST /v1/invites/validate",
		httpx.Chain(validate,
			httpx.RateLimitByIP(httpx.ValidateLimit, r.trustProxy),
			httpx.OptionalAuthnMiddleware(r.verifier),
			r.gated,
		),
	)

	// POST /invites/accept - redemption requires an authenticated tenant.
	r.handle("POST /v1/invites/accept",
		httpx.Chain(accept,
			httpx.RateLimitByIP(httpx.AcceptLimit, r.trustProxy),
			httpx.AuthnMiddleware(r.verifier),
			r.gated,
		),
	)
}

func (r *Router) registerIssuer() {
	h := &IssuerHandler{Issuer: r.Issuer}

	secured := func(next http.HandlerFunc, scopes ...string) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(scopes...),
			httpx.RateLimitByUser(httpx.ManageLimit, r.trustProxy),
		)
	}

	r.handle("POST /v1/invites", secured(h.HandleIssue, ScopeInvitesWrite))
	r.handle("POST /v1/invites/revoke", secured(h.HandleRevoke, ScopeInvitesWrite))
	r.handle("GET /v1/properties/{id}/invites", secured(h.HandleList, ScopeInvitesRead, ScopeInvitesWrite))
}

func (r *Router) registerRollout() {
	h := &RolloutHandler{Controller: r.Controller, Metrics: r.Metrics}

	secured := func(next http.HandlerFunc, scopes ...string) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyScope(scopes...),
			httpx.RateLimitByUser(httpx.ManageLimit, r.trustProxy),
		)
	}

	r.handle("GET /v1/rollout/{feature}", secured(h.HandleGet, ScopeRolloutRead, ScopeRolloutWrite))
	r.handle("PUT /v1/rollout/{feature}", secured(h.HandleSet, ScopeRolloutWrite))
	r.handle("GET /v1/rollout/{feature}/evaluation", secured(h.HandleEvaluate, ScopeRolloutRead, ScopeRolloutWrite))
}

func (r *Router) registerSystem() {
	// Probes poll frequently; the validate profile is generous enough.
	r.handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.ValidateLimit, r.trustProxy),
		),
	)
	r.handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.ValidateLimit, r.trustProxy),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics.Handler())
	}
}
