package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trackcrate/trackcrate/internal/auth/domain"
	authhttp "github.com/trackcrate/trackcrate/internal/auth/http"
	"github.com/trackcrate/trackcrate/internal/auth/service"
	"github.com/trackcrate/trackcrate/internal/auth/store/drivers/memory"
	"github.com/trackcrate/trackcrate/internal/auth/store/drivers/sqlite"
	"github.com/trackcrate/trackcrate/pkg/authsdk"
	"github.com/trackcrate/trackcrate/pkg/cryptox"
	"github.com/trackcrate/trackcrate/pkg/httpx"
	"github.com/trackcrate/trackcrate/pkg/idx"
	"github.com/trackcrate/trackcrate/pkg/jwtx"
)

const (
	testIssuer   = "trackcrate-auth"
	testPassword = "Password123!"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	srv   *httptest.Server
	admin domain.User
	user  domain.User
}

// looseLimits keeps rate limiting out of functional tests; the limiter has
// its own suite.
func looseLimits() authhttp.RateLimits {
	loose := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	return authhttp.RateLimits{Credential: loose, Session: loose, Read: loose}
}

func newTestEnv(t *testing.T, limits authhttp.RateLimits) *testEnv {
	t.Helper()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	admin := domain.User{
		ID:           idx.New().String(),
		Username:     "root",
		PasswordHash: hash,
		Roles:        []string{"admin"},
	}
	user := domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: hash,
		Roles:        []string{"listener", "beatmaker"},
	}
	ctx := context.Background()
	require.NoError(t, db.Users().CreateUser(ctx, admin))
	require.NoError(t, db.Users().CreateUser(ctx, user))

	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier := jwtx.NewCommonHS256(testSecret, testIssuer)

	sessions := &service.SessionService{
		Signer:      signer,
		Verifier:    verifier,
		Users:       db.Users(),
		Credentials: memory.NewStore(),
		Issuer:      testIssuer,
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := authhttp.NewRouter(logger, sessions, db, verifier, limits, "test")

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, admin: admin, user: user}
}

func (e *testEnv) post(t *testing.T, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	return e.do(t, http.MethodPost, path, body, headers)
}

func (e *testEnv) get(t *testing.T, path string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	return e.do(t, http.MethodGet, path, nil, headers)
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (e *testEnv) login(t *testing.T, username string) authsdk.TokenPairResponse {
	t.Helper()

	resp, raw := e.post(t, "/v1/auth/login", authsdk.LoginRequest{
		Username: username,
		Password: testPassword,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var pair authsdk.TokenPairResponse
	require.NoError(t, json.Unmarshal(raw, &pair))
	return pair
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeError(t *testing.T, raw []byte) authsdk.ErrorResponse {
	t.Helper()
	var e authsdk.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("valid credentials", func(t *testing.T) {
		pair := env.login(t, "alice")
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
		require.Equal(t, "Bearer", pair.TokenType)
		require.Equal(t, int((15 * time.Minute).Seconds()), pair.ExpiresIn)
	})

	t.Run("token responses are not cacheable", func(t *testing.T) {
		resp, _ := env.post(t, "/v1/auth/login", authsdk.LoginRequest{
			Username: "alice", Password: testPassword,
		}, nil)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/login", authsdk.LoginRequest{
			Username: "alice", Password: "wrong",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidCredentials, decodeError(t, raw).Error)
	})

	t.Run("unknown user reads like a wrong password", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/login", authsdk.LoginRequest{
			Username: "nobody", Password: testPassword,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidCredentials, decodeError(t, raw).Error)
	})

	t.Run("absent field", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/login", map[string]string{"username": "alice"}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeMissingFields, decodeError(t, raw).Error)
	})

	t.Run("blank field", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/login", map[string]string{
			"username": "   ", "password": testPassword,
		}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeEmptyFields, decodeError(t, raw).Error)
	})

	t.Run("garbage body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/v1/auth/login", bytes.NewBufferString("{not json"))
		require.NoError(t, err)
		resp, err := env.srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("rotation mints a new pair and consumes the old token", func(t *testing.T) {
		first := env.login(t, "alice")

		resp, raw := env.post(t, "/v1/auth/refresh", authsdk.RefreshRequest{
			RefreshToken: first.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		var second authsdk.TokenPairResponse
		require.NoError(t, json.Unmarshal(raw, &second))
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)

		// Replaying the consumed token fails.
		resp, raw = env.post(t, "/v1/auth/refresh", authsdk.RefreshRequest{
			RefreshToken: first.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidRefreshToken, decodeError(t, raw).Error)
	})

	t.Run("unknown token", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/refresh", authsdk.RefreshRequest{
			RefreshToken: "never-issued",
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidRefreshToken, decodeError(t, raw).Error)
	})

	t.Run("absent field", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/refresh", map[string]string{}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeMissingFields, decodeError(t, raw).Error)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("destroys the refresh token and denylists the access token", func(t *testing.T) {
		pair := env.login(t, "alice")

		resp, raw := env.post(t, "/v1/auth/logout", authsdk.LogoutRequest{
			RefreshToken: pair.RefreshToken,
			AccessToken:  pair.AccessToken,
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		// The refresh token is gone.
		resp, _ = env.post(t, "/v1/auth/refresh", authsdk.RefreshRequest{
			RefreshToken: pair.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		// The denylisted access token no longer authenticates.
		resp, raw = env.get(t, "/v1/me", bearer(pair.AccessToken))
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Equal(t, "invalid or expired token", decodeError(t, raw).Message)
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/logout", authsdk.LogoutRequest{
			RefreshToken: "never-issued",
		}, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeTokenNotFound, decodeError(t, raw).Error)
	})
}

func TestRevokeAllEndpoint(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("sweeps every session for the caller", func(t *testing.T) {
		pairs := []authsdk.TokenPairResponse{
			env.login(t, "alice"),
			env.login(t, "alice"),
			env.login(t, "alice"),
		}

		resp, raw := env.post(t, "/v1/auth/revoke-all", nil, bearer(pairs[0].AccessToken))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		var out authsdk.RevokeAllResponse
		require.NoError(t, json.Unmarshal(raw, &out))
		require.Equal(t, 3, out.Revoked)

		for _, pair := range pairs {
			resp, _ = env.post(t, "/v1/auth/refresh", authsdk.RefreshRequest{
				RefreshToken: pair.RefreshToken,
			}, nil)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp, _ = env.get(t, "/v1/me", bearer(pair.AccessToken))
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		}
	})

	t.Run("requires a credential", func(t *testing.T) {
		resp, _ := env.post(t, "/v1/auth/revoke-all", nil, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestValidateTokenEndpoint(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("valid token", func(t *testing.T) {
		pair := env.login(t, "alice")

		resp, raw := env.post(t, "/v1/auth/validate-token", authsdk.ValidateTokenRequest{
			Token: pair.AccessToken,
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out authsdk.ValidateTokenResponse
		require.NoError(t, json.Unmarshal(raw, &out))
		require.True(t, out.Valid)
		require.NotNil(t, out.User)
		require.Equal(t, env.user.ID, out.User.ID)
		require.Equal(t, "alice", out.User.Username)
		require.Equal(t, []string{"listener", "beatmaker"}, out.User.Roles)
	})

	t.Run("garbage token answers 200 with valid false", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/validate-token", authsdk.ValidateTokenRequest{
			Token: "not.a.jwt",
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out authsdk.ValidateTokenResponse
		require.NoError(t, json.Unmarshal(raw, &out))
		require.False(t, out.Valid)
		require.Nil(t, out.User)
	})

	t.Run("absent field is the one caller error", func(t *testing.T) {
		resp, raw := env.post(t, "/v1/auth/validate-token", map[string]string{}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, authsdk.ErrorCodeMissingFields, decodeError(t, raw).Error)
	})
}

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("bearer token", func(t *testing.T) {
		pair := env.login(t, "alice")

		resp, raw := env.get(t, "/v1/me", bearer(pair.AccessToken))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		var info authsdk.UserInfo
		require.NoError(t, json.Unmarshal(raw, &info))
		require.Equal(t, env.user.ID, info.ID)
		require.Equal(t, "alice", info.Username)
		require.Equal(t, []string{"listener", "beatmaker"}, info.Roles)
		require.False(t, info.CreatedAt.IsZero())
	})

	t.Run("gateway identity without a local record", func(t *testing.T) {
		resp, raw := env.get(t, "/v1/me", map[string]string{
			"X-Gateway-Auth":     "true",
			"X-Gateway-User-Id":  "ext-42",
			"X-Gateway-Username": "carol",
			"X-Gateway-Roles":    "listener",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		var info authsdk.UserInfo
		require.NoError(t, json.Unmarshal(raw, &info))
		require.Equal(t, "ext-42", info.ID)
		require.Equal(t, "carol", info.Username)
		require.Equal(t, []string{"listener"}, info.Roles)
	})

	t.Run("no credential", func(t *testing.T) {
		resp, _ := env.get(t, "/v1/me", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
	})
}

func TestAdminUsersEndpoint(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("admin role lists users", func(t *testing.T) {
		pair := env.login(t, "root")

		resp, raw := env.get(t, "/v1/admin/users", bearer(pair.AccessToken))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		var users []authsdk.UserInfo
		require.NoError(t, json.Unmarshal(raw, &users))
		require.Len(t, users, 2)
	})

	t.Run("non-admin is refused with role disclosure", func(t *testing.T) {
		pair := env.login(t, "alice")

		resp, raw := env.get(t, "/v1/admin/users", bearer(pair.AccessToken))
		require.Equal(t, http.StatusForbidden, resp.StatusCode)

		var body struct {
			Error    string   `json:"error"`
			Required []string `json:"required"`
			Current  []string `json:"current"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, authsdk.ErrorCodeForbidden, body.Error)
		require.Equal(t, []string{"admin"}, body.Required)
		require.Equal(t, []string{"listener", "beatmaker"}, body.Current)
	})

	t.Run("gateway admin passes the gate", func(t *testing.T) {
		resp, _ := env.get(t, "/v1/admin/users", map[string]string{
			"X-Gateway-Auth":    "true",
			"X-Gateway-User-Id": "ops-1",
			"X-Gateway-Roles":   "admin",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestVersionPrefix(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	resp, raw := env.post(t, "/auth/login", authsdk.LoginRequest{
		Username: "alice", Password: testPassword,
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, authsdk.ErrorCodeUnsupportedAPIVersion, decodeError(t, raw).Error)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, looseLimits())

	t.Run("livez", func(t *testing.T) {
		resp, raw := env.get(t, "/livez", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var health authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(raw, &health))
		require.Equal(t, "ok", health.Status)
		require.Equal(t, "test", health.Version)
		require.Nil(t, health.Checks)
	})

	t.Run("readyz reports per-dependency checks", func(t *testing.T) {
		resp, raw := env.get(t, "/readyz", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var health authsdk.HealthResponse
		require.NoError(t, json.Unmarshal(raw, &health))
		require.Equal(t, "ok", health.Status)
		require.NotNil(t, health.Checks)
		require.Equal(t, "ok", health.Checks.Database)
		require.Equal(t, "ok", health.Checks.Credentials)
	})
}

func TestCredentialRateLimit(t *testing.T) {
	limits := looseLimits()
	limits.Credential = httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	env := newTestEnv(t, limits)

	body := authsdk.LoginRequest{Username: "alice", Password: "wrong"}
	for i := 0; i < 2; i++ {
		resp, _ := env.post(t, "/v1/auth/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, raw := env.post(t, "/v1/auth/login", body, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.Equal(t, "RATE_LIMITED", decodeError(t, raw).Error)
}
