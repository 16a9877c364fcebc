package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/trackcrate/trackcrate/internal/auth/service"
	"github.com/trackcrate/trackcrate/pkg/authsdk"
	"github.com/trackcrate/trackcrate/pkg/httpx"
	"github.com/trackcrate/trackcrate/pkg/slogx"
)

// LogoutHandler serves POST /v1/auth/logout. Destroys the refresh token and,
// when the caller supplies its access token too, denylists that token for
// the remainder of its lifetime.
type LogoutHandler struct {
	Sessions *service.SessionService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req struct {
		RefreshToken *string `json:"refreshToken"`
		AccessToken  string  `json:"accessToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}
	if req.RefreshToken == nil {
		authsdk.ErrMissingFields.WriteError(w)
		return
	}

	token := strings.TrimSpace(*req.RefreshToken)
	if token == "" {
		authsdk.ErrEmptyFields.WriteError(w)
		return
	}

	err := h.Sessions.Logout(r.Context(), token, strings.TrimSpace(req.AccessToken))
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			authsdk.ErrTokenNotFound.WriteError(w)
			return
		}
		log.Error("logout failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}
