package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trackcrate/trackcrate/pkg/authsdk"
)

func TestRevokeAllSweepsEveryDevice(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	// Three independent logins model three devices.
	devices := make([]*authsdk.Session, 0, 3)
	for i := 0; i < 3; i++ {
		s, err := st.sdk.Login(ctx, userUsername, userPassword)
		require.NoError(t, err)
		devices = append(devices, s)
	}

	revoked, err := devices[0].RevokeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, revoked)

	for _, device := range devices {
		access, refresh := device.Tokens()

		_, err := st.sdk.Refresh(ctx, refresh)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, authsdk.ErrorCodeInvalidRefreshToken, apiErr.Code)

		out, err := st.sdk.ValidateToken(ctx, access)
		require.NoError(t, err)
		require.False(t, out.Valid)
	}

	// The sweep is scoped to the subject: other accounts are untouched.
	adminSession, err := st.sdk.Login(ctx, adminUsername, adminPassword)
	require.NoError(t, err)
	_, err = adminSession.Me(ctx)
	require.NoError(t, err)
}

func TestRevokeAllCountsLiveSessions(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	session, err := st.sdk.Login(ctx, userUsername, userPassword)
	require.NoError(t, err)

	// Only the single live refresh record is counted.
	revoked, err := session.RevokeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, revoked)
}
