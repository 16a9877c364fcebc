package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the TrackCrate session authority. It provides
// the unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new session authority client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges a username and password for an authenticated Session.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	var pair TokenPairResponse
	err := c.postJSON(ctx, "/v1/auth/login", LoginRequest{
		Username: username,
		Password: password,
	}, &pair, http.StatusOK)
	if err != nil {
		return nil, err
	}

	return newSession(c, pair), nil
}

// NewSessionFromTokens creates a Session from previously stored tokens,
// e.g. tokens persisted across a client restart. The session still rotates
// the refresh token when the access token expires.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	expiresAt = expiresAt.Add(-30 * time.Second) // refresh a little early

	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
	}
}

// Refresh rotates a refresh token directly, without session bookkeeping.
// Most callers want Session instead; this exists for gateways and tools that
// manage token storage themselves.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPairResponse, error) {
	var pair TokenPairResponse
	err := c.postJSON(ctx, "/v1/auth/refresh", RefreshRequest{
		RefreshToken: refreshToken,
	}, &pair, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// ValidateToken asks the authority whether a raw access token is currently
// acceptable. Invalid tokens answer Valid false, not an error.
func (c *SDKClient) ValidateToken(ctx context.Context, token string) (*ValidateTokenResponse, error) {
	var res ValidateTokenResponse
	err := c.postJSON(ctx, "/v1/auth/validate-token", ValidateTokenRequest{
		Token: token,
	}, &res, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout revokes a single refresh token and optionally denylists the paired
// access token for the rest of its lifetime.
func (c *SDKClient) Logout(ctx context.Context, refreshToken, accessToken string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", LogoutRequest{
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
	}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return parseErrorResponse(resp, body)
}

// GetLiveness checks that the service process is up.
func (c *SDKClient) GetLiveness(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return parseErrorResponse(resp, body)
}

// GetReadiness checks that the service and its stores can take traffic.
func (c *SDKClient) GetReadiness(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return parseErrorResponse(resp, body)
}

// doRequest performs an HTTP request, JSON-encoding the body if non-nil and
// attaching a bearer token when one is given.
func (c *SDKClient) doRequest(
	ctx context.Context,
	method, path string,
	body any,
	bearer string,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// postJSON posts a JSON body and decodes a JSON response into target,
// converting any non-expected status into a typed *APIError.
func (c *SDKClient) postJSON(ctx context.Context, path string, body, target any, expectedStatus int) error {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, expectedStatus)
}

// decodeJSON decodes a JSON response into the target, returning a typed
// *APIError for any unexpected status.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
