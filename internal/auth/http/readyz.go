package http

import (
	"context"
	"net/http"
	"time"

	"github.com/trackcrate/trackcrate/pkg/authsdk"
	"github.com/trackcrate/trackcrate/pkg/httpx"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyzHandler serves GET /readyz. Checks both backing stores and answers
// 503 with per-dependency detail when either is unreachable.
type ReadyzHandler struct {
	Version   string
	StartedAt time.Time

	Database    Pinger // user accounts
	Credentials Pinger // refresh tokens and the revocation ledger
}

func (h *ReadyzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := &authsdk.HealthChecks{
		Database:    "ok",
		Credentials: "ok",
	}
	status := "ok"
	code := http.StatusOK

	if err := h.Database.Ping(r.Context()); err != nil {
		checks.Database = "error: " + err.Error()
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	if err := h.Credentials.Ping(r.Context()); err != nil {
		checks.Credentials = "error: " + err.Error()
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	httpx.WriteJSON(w, code, authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.StartedAt).String(),
		Version: h.Version,
		Checks:  checks,
	})
}
