package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Session is an authenticated view of the session authority. It holds the
// current token pair and rotates it lazily: an authenticated call made after
// the access token's expiry first exchanges the refresh token for a new pair.
// Safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(c *SDKClient, pair TokenPairResponse) *Session {
	return &Session{
		client:       c,
		accessToken:  pair.AccessToken,
		refreshToken: pair.RefreshToken,
		expiresAt:    expiryFrom(pair.ExpiresIn),
	}
}

func expiryFrom(expiresIn int) time.Time {
	// Refresh 30 seconds early so a token never expires mid-flight.
	return time.Now().Add(time.Duration(expiresIn)*time.Second - 30*time.Second)
}

// Tokens returns the current token pair. Useful for persisting a session
// across restarts; restore with SDKClient.NewSessionFromTokens.
func (s *Session) Tokens() (accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

// getValidToken returns a usable access token, rotating the pair first if
// the current one is at or past expiry.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("session refresh failed: %w", err)
	}

	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.expiresAt = expiryFrom(pair.ExpiresIn)

	return s.accessToken, nil
}

// Me returns the authenticated user's identity snapshot.
func (s *Session) Me(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := s.getJSON(ctx, "/v1/me", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListUsers lists every known user. Requires the admin role.
func (s *Session) ListUsers(ctx context.Context) ([]UserInfo, error) {
	var users []UserInfo
	if err := s.getJSON(ctx, "/v1/admin/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Logout revokes this session's refresh token and denylists its access
// token. The Session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken, accessToken := s.refreshToken, s.accessToken
	s.mu.Unlock()

	return s.client.Logout(ctx, refreshToken, accessToken)
}

// RevokeAll revokes every refresh token owned by this user and cuts off all
// outstanding access tokens, across every device. Returns the number of
// refresh records destroyed. The Session itself is unusable afterwards.
func (s *Session) RevokeAll(ctx context.Context) (int, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/auth/revoke-all", nil, token)
	if err != nil {
		return 0, err
	}

	var res RevokeAllResponse
	if err := decodeJSON(resp, &res, http.StatusOK); err != nil {
		return 0, err
	}
	return res.Revoked, nil
}

func (s *Session) getJSON(ctx context.Context, path string, target any) error {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return err
	}

	resp, err := s.client.doRequest(ctx, http.MethodGet, path, nil, token)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, http.StatusOK)
}
