package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trackcrate/trackcrate/pkg/authsdk"
)

func TestAdminUserListing(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	t.Run("admin lists every account", func(t *testing.T) {
		session, err := st.sdk.Login(ctx, adminUsername, adminPassword)
		require.NoError(t, err)

		users, err := session.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)

		byName := map[string][]string{}
		for _, u := range users {
			byName[u.Username] = u.Roles
		}
		require.Equal(t, []string{"admin"}, byName[adminUsername])
		require.Equal(t, []string{"listener", "beatmaker"}, byName[userUsername])
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		session, err := st.sdk.Login(ctx, userUsername, userPassword)
		require.NoError(t, err)

		_, err = session.ListUsers(ctx)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.Status)
		require.Equal(t, authsdk.ErrorCodeForbidden, apiErr.Code)
	})
}

func TestValidateTokenThroughSDK(t *testing.T) {
	st := newStack(t)
	ctx := context.Background()

	session, err := st.sdk.Login(ctx, userUsername, userPassword)
	require.NoError(t, err)
	access, _ := session.Tokens()

	t.Run("live token", func(t *testing.T) {
		out, err := st.sdk.ValidateToken(ctx, access)
		require.NoError(t, err)
		require.True(t, out.Valid)
		require.Equal(t, st.userID, out.User.ID)
		require.Equal(t, userUsername, out.User.Username)
	})

	t.Run("garbage token is a negative answer, not an error", func(t *testing.T) {
		out, err := st.sdk.ValidateToken(ctx, "not.a.jwt")
		require.NoError(t, err)
		require.False(t, out.Valid)
		require.Nil(t, out.User)
	})
}
