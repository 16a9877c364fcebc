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

// LoginHandler serves POST /v1/auth/login. Exchanges a username/password
// pair for a fresh token pair.
type LoginHandler struct {
	Sessions *service.SessionService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	// Pointer fields distinguish an absent key from a present-but-blank one;
	// the two cases answer with different error codes.
	var req struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidJSONBody.WriteError(w)
		return
	}
	if req.Username == nil || req.Password == nil {
		authsdk.ErrMissingFields.WriteError(w)
		return
	}

	username := strings.TrimSpace(*req.Username)
	password := *req.Password
	if username == "" || password == "" {
		authsdk.ErrEmptyFields.WriteError(w)
		return
	}

	pair, err := h.Sessions.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			authsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
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
