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

// ValidateTokenHandler serves POST /v1/auth/validate-token. An inspection
// endpoint for services that cannot verify tokens themselves. A bad token is
// not an error: the answer is 200 with valid false. Only a malformed request
// or a credential-store outage produces a non-200.
type ValidateTokenHandler struct {
	Sessions *service.SessionService
}

func (h *ValidateTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req struct {
		Token *string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}
	if req.Token == nil {
		authsdk.ErrMissingFields.WriteError(w)
		return
	}

	token := strings.TrimSpace(*req.Token)
	if token == "" {
		authsdk.ErrEmptyFields.WriteError(w)
		return
	}

	claims, err := h.Sessions.ValidateToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorizedToken) {
			httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateTokenResponse{Valid: false})
			return
		}
		// Ledger outage: refusing beats guessing.
		log.Error("token validation failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateTokenResponse{
		Valid: true,
		User: &authsdk.TokenUser{
			ID:       claims.Subject,
			Username: claims.Username,
			Roles:    roles,
		},
	})
}
