package jwtx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC()
	claims := NewAccessClaims(
		"user-123",
		"beatsmith",
		[]string{"beatmaker", "admin"},
		15*time.Minute,
		"trackcrate-auth",
		now,
	)

	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "beatsmith", claims.Username)
	require.Equal(t, []string{"beatmaker", "admin"}, claims.Roles)
	require.Equal(t, "trackcrate-auth", claims.Issuer)
	require.NotEmpty(t, claims.ID, "jti must be set for revocation")
	require.WithinDuration(t, now, claims.IssuedAt.Time, time.Second)
	require.WithinDuration(t, now.Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestNewJTI_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		jti := NewJTI()
		require.NotEmpty(t, jti)
		require.False(t, seen[jti], "jti collision")
		seen[jti] = true
	}
}

func TestValidateIssuer(t *testing.T) {
	claims := NewAccessClaims("u", "n", nil, time.Minute, "issuer-a", time.Now())

	require.NoError(t, claims.ValidateIssuer("issuer-a"))
	require.NoError(t, claims.ValidateIssuer(""), "empty expected issuer enforces nothing")
	require.ErrorIs(t, claims.ValidateIssuer("issuer-b"), ErrIssuer)
}

func TestValidateExpiry(t *testing.T) {
	t.Run("fresh token passes", func(t *testing.T) {
		claims := NewAccessClaims("u", "n", nil, time.Minute, "iss", time.Now())
		require.NoError(t, claims.ValidateExpiry())
	})

	t.Run("expired token fails", func(t *testing.T) {
		claims := NewAccessClaims("u", "n", nil, time.Minute, "iss", time.Now().Add(-2*time.Minute))
		require.ErrorIs(t, claims.ValidateExpiry(), ErrExpired)
	})

	t.Run("future token fails nbf", func(t *testing.T) {
		claims := NewAccessClaims("u", "n", nil, time.Minute, "iss", time.Now().Add(time.Hour))
		require.ErrorIs(t, claims.ValidateExpiry(), ErrNotYetValid)
	})

	t.Run("leeway tolerates small skew", func(t *testing.T) {
		claims := NewAccessClaims("u", "n", nil, time.Minute, "iss", time.Now().Add(-61*time.Second))
		require.ErrorIs(t, claims.ValidateExpiry(), ErrExpired)
		require.NoError(t, claims.ValidateExpiryWithLeeway(5*time.Second))
	})
}
