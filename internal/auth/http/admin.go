package http

import (
	"net/http"

	"github.com/trackcrate/trackcrate/internal/auth/store"
	"github.com/trackcrate/trackcrate/pkg/authsdk"
	"github.com/trackcrate/trackcrate/pkg/httpx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

// AdminUsersHandler serves GET /v1/admin/users. Lists every user account;
// the router gates it behind the admin role.
type AdminUsersHandler struct {
	Users store.Users
}

func (h *AdminUsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		log.Error("user listing failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]authsdk.UserInfo, 0, len(users))
	for _, u := range users {
		roles := u.Roles
		if roles == nil {
			roles = []string{}
		}
		out = append(out, authsdk.UserInfo{
			ID:        u.ID,
			Username:  u.Username,
			Roles:     roles,
			CreatedAt: u.CreatedAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}
