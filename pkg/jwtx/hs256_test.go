package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewSignerHS256_RejectsShortSecret(t *testing.T) {
	_, err := NewSignerHS256([]byte("too-short"))
	require.Error(t, err)
}

func TestHS256_SignAndVerify(t *testing.T) {
	signer, err := NewSignerHS256(testSecret)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	require.Equal(t, "HS256", signer.Alg())

	claims := NewAccessClaims(
		"user-1", "beatsmith", []string{"beatmaker"},
		15*time.Minute, "trackcrate-auth", time.Now(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(token, ".")), "compact JWS has three segments")

	verifier := NewCommonHS256(testSecret, "trackcrate-auth")
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "beatsmith", got.Username)
	require.Equal(t, []string{"beatmaker"}, got.Roles)
	require.Equal(t, claims.ID, got.ID)
}

func TestHS256_VerifyRejectsWrongSecret(t *testing.T) {
	signer, err := NewSignerHS256(testSecret)
	require.NoError(t, err)

	token, err := signer.Sign(NewAccessClaims("u", "n", nil, time.Minute, "iss", time.Now()))
	require.NoError(t, err)

	other := []byte("ffffffffffffffffffffffffffffffff")
	_, err = NewCommonHS256(other, "iss").Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestHS256_VerifyRejectsExpired(t *testing.T) {
	signer, err := NewSignerHS256(testSecret)
	require.NoError(t, err)

	token, err := signer.Sign(NewAccessClaims(
		"u", "n", nil, time.Minute, "iss", time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	_, err = NewCommonHS256(testSecret, "iss").Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestHS256_VerifyRejectsIssuerMismatch(t *testing.T) {
	signer, err := NewSignerHS256(testSecret)
	require.NoError(t, err)

	token, err := signer.Sign(NewAccessClaims("u", "n", nil, time.Minute, "other-issuer", time.Now()))
	require.NoError(t, err)

	_, err = NewCommonHS256(testSecret, "trackcrate-auth").Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestHS256_VerifyRejectsGarbage(t *testing.T) {
	verifier := NewCommonHS256(testSecret, "iss")

	for _, tok := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		_, err := verifier.Verify(tok)
		require.Error(t, err, "token %q must not verify", tok)
	}
}

func TestHS256_TamperedPayloadRejected(t *testing.T) {
	signer, err := NewSignerHS256(testSecret)
	require.NoError(t, err)

	token, err := signer.Sign(NewAccessClaims("u", "n", nil, time.Minute, "iss", time.Now()))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	_, err = NewCommonHS256(testSecret, "iss").Verify(strings.Join(parts, "."))
	require.Error(t, err)
}
