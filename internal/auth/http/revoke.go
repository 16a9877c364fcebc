package http

import (
	"net/http"

	"github.com/trackcrate/trackcrate/internal/auth/service"
	"github.com/trackcrate/trackcrate/pkg/authsdk"
	"github.com/trackcrate/trackcrate/pkg/httpx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

// RevokeAllHandler serves POST /v1/auth/revoke-all. Sweeps every refresh
// token belonging to the caller and marks all access tokens issued before
// now as revoked. The caller's current access token dies with the rest.
type RevokeAllHandler struct {
	Sessions *service.SessionService
}

func (h *RevokeAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	revoked, err := h.Sessions.RevokeAll(r.Context(), id.Subject)
	if err != nil {
		log.Error("revoke-all failed", "subject", id.Subject, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	log.Info("revoked all sessions", "subject", id.Subject, "count", revoked)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeAllResponse{
		Revoked: revoked,
	})
}
