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

// RefreshHandler serves POST /v1/auth/refresh. Rotates a refresh token:
// the presented token is consumed and a new pair is minted. A replay of a
// consumed token fails, signalling possible theft.
type RefreshHandler struct {
	Sessions *service.SessionService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req struct {
		RefreshToken *string `json:"refreshToken"`
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

	pair, err := h.Sessions.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			authsdk.ErrInvalidRefreshToken.WriteError(w)
			return
		}
		log.Error("refresh failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}
