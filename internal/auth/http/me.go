package http

import (
	"errors"
	"net/http"

	"github.com/trackcrate/trackcrate/internal/auth/store"
	"github.com/trackcrate/trackcrate/pkg/authsdk"
	"github.com/trackcrate/trackcrate/pkg/httpx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

// MeHandler serves GET /v1/me. Returns the caller's profile from the user
// store, falling back to the authenticated identity snapshot when no local
// record exists. Gateway-asserted subjects are not necessarily provisioned
// here.
type MeHandler struct {
	Users store.Users
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	id, ok := httpx.IdentityFromContext(r.Context())
	if !ok {
		authsdk.ErrUnauthorized.WriteError(w)
		return
	}

	user, err := h.Users.GetUserByID(r.Context(), id.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			roles := id.Roles
			if roles == nil {
				roles = []string{}
			}
			httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfo{
				ID:       id.Subject,
				Username: id.Username,
				Roles:    roles,
			})
			return
		}
		log.Error("profile lookup failed", "subject", id.Subject, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Roles:     roles,
		CreatedAt: user.CreatedAt,
	})
}
