// Package auth_test exercises the session authority end to end through the
// public SDK, against a fully wired router. The sqlite user store runs on an
// in-memory database and the credential store is the in-process driver, so
// the suite needs no external services.
package auth_test

import (
	"context"
	"io"
	"log/slog"
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
	adminUsername = "root"
	adminPassword = "RootPassword123!"
	userUsername  = "alice"
	userPassword  = "AlicePassword123!"
)

var tokenSecret = []byte("e2e-secret-0123456789abcdef01234")

type stack struct {
	sdk *authsdk.SDKClient

	adminID string
	userID  string
}

func newStack(t *testing.T) *stack {
	t.Helper()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	adminID := seedUser(t, db, adminUsername, adminPassword, []string{"admin"})
	userID := seedUser(t, db, userUsername, userPassword, []string{"listener", "beatmaker"})

	signer, err := jwtx.NewSignerHS256(tokenSecret)
	require.NoError(t, err)
	verifier := jwtx.NewCommonHS256(tokenSecret, "trackcrate-auth")

	sessions := &service.SessionService{
		Signer:      signer,
		Verifier:    verifier,
		Users:       db.Users(),
		Credentials: memory.NewStore(),
		Issuer:      "trackcrate-auth",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
	}

	// High budgets keep limiter noise out of functional assertions; the
	// limiter behaviour has its own suite.
	loose := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	limits := authhttp.RateLimits{Credential: loose, Session: loose, Read: loose}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(authhttp.NewRouter(logger, sessions, db, verifier, limits, "e2e"))
	t.Cleanup(srv.Close)

	return &stack{
		sdk:     authsdk.NewSDKClient(srv.URL),
		adminID: adminID,
		userID:  userID,
	}
}

func seedUser(t *testing.T, db *sqlite.Store, username, password string, roles []string) string {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Roles:        roles,
	}
	require.NoError(t, db.Users().CreateUser(context.Background(), u))
	return u.ID
}
