// Package http wires the session authority's endpoints onto a net/http mux.
// Handlers stay thin: they validate input shape, call the service layer, and
// translate sentinel errors into the wire envelope. Authentication and rate
// limiting are middleware concerns, configured once here.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/trackcrate/trackcrate/internal/auth/service"
	"github.com/trackcrate/trackcrate/internal/auth/store"
	"github.com/trackcrate/trackcrate/pkg/httpx"
	"github.com/trackcrate/trackcrate/pkg/jwtx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

// RateLimits carries the per-route budgets. Injected rather than global so
// tests can loosen them without touching process state.
type RateLimits struct {
	Credential httpx.RateLimitConfig // login, refresh: brute-force surface
	Session    httpx.RateLimitConfig // logout, revoke-all, validate
	Read       httpx.RateLimitConfig // me, admin listing
}

// DefaultRateLimits returns production budgets.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Credential: httpx.StrictLimit,
		Session:    httpx.ModerateLimit,
		Read:       httpx.LenientLimit,
	}
}

// Router owns the mux and the shared dependencies handlers pull from.
type Router struct {
	Mux *http.ServeMux

	Sessions *service.SessionService
	Users    store.UserStore

	Limits  RateLimits
	Version string

	startedAt time.Time
}

// openPaths lists endpoints reachable without any credential. Health probes
// and the credential-minting endpoints themselves must stay open; everything
// else goes through the authenticator.
func openPaths() []string {
	return []string{
		"/livez",
		"/readyz",
		"/v1/auth/login",
		"/v1/auth/refresh",
		"/v1/auth/logout",
		"/v1/auth/validate-token",
	}
}

// NewRouter assembles the full handler tree: request logging, then
// authentication, then per-route rate limits and role gates.
func NewRouter(
	logger *slog.Logger,
	sessions *service.SessionService,
	users store.UserStore,
	verifier jwtx.Verifier,
	limits RateLimits,
	version string,
) http.Handler {
	r := &Router{
		Mux:       http.NewServeMux(),
		Sessions:  sessions,
		Users:     users,
		Limits:    limits,
		Version:   version,
		startedAt: time.Now(),
	}

	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	authn := &httpx.Authenticator{
		Verifier:      verifier,
		Revocations:   sessions.Credentials.Revocations(),
		VersionPrefix: "/v1/",
		OpenPaths:     openPaths(),
	}

	return httpx.Chain(r.Mux,
		slogx.HTTPMiddleware(logger),
		authn.Middleware(),
	)
}

func (r *Router) registerAuth() {
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(r.Limits.Credential),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(&RefreshHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(r.Limits.Credential),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(&LogoutHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(r.Limits.Session),
		),
	)

	r.Mux.Handle("POST /v1/auth/revoke-all",
		httpx.Chain(&RevokeAllHandler{Sessions: r.Sessions},
			httpx.RateLimitByUser(r.Limits.Session),
		),
	)

	r.Mux.Handle("POST /v1/auth/validate-token",
		httpx.Chain(&ValidateTokenHandler{Sessions: r.Sessions},
			httpx.RateLimitByIP(r.Limits.Session),
		),
	)
}

func (r *Router) registerUsers() {
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(&MeHandler{Users: r.Users.Users()},
			httpx.RateLimitByUser(r.Limits.Read),
		),
	)

	r.Mux.Handle("GET /v1/admin/users",
		httpx.Chain(&AdminUsersHandler{Users: r.Users.Users()},
			httpx.RequireRoles("admin"),
			httpx.RateLimitByUser(r.Limits.Read),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.Version, r.startedAt))
	r.Mux.Handle("GET /readyz", &ReadyzHandler{
		Version:     r.Version,
		StartedAt:   r.startedAt,
		Database:    r.Users,
		Credentials: r.Sessions.Credentials,
	})
}
