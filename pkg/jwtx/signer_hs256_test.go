package jwtx_test

import (
	"testing"
	"time"

	"github.com/ironveil/warden/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewHS256SignerRejectsShortSecrets(t *testing.T) {
	t.Parallel()

	_, err := jwtx.NewHS256Signer([]byte("too-short"), "warden")
	require.Error(t, err)
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewHS256Signer(testSecret, "warden")
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := jwtx.NewSessionClaims(
		"user-1", "sess-1", "alice", true,
		[]string{"pwd", "totp"},
		"warden", time.Hour, now,
	)

	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := signer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "sess-1", got.SID)
	require.Equal(t, "alice", got.Username)
	require.True(t, got.Admin)
	require.Equal(t, []string{"pwd", "totp"}, got.AMR)
}

func TestVerifyRejectsExpiredTokens(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewHS256Signer(testSecret, "warden")
	require.NoError(t, err)

	past := time.Now().UTC().Add(-2 * time.Hour)
	claims := jwtx.NewSessionClaims("u", "s", "bob", false, []string{"pwd"}, "warden", time.Hour, past)

	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = signer.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestVerifyRejectsWrongKeyAndIssuer(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewHS256Signer(testSecret, "warden")
	require.NoError(t, err)

	other, err := jwtx.NewHS256Signer([]byte("ffffffffffffffffffffffffffffffff"), "warden")
	require.NoError(t, err)

	claims := jwtx.NewSessionClaims("u", "s", "bob", false, []string{"pwd"}, "warden", time.Hour, time.Now().UTC())
	raw, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = other.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)

	impostor, err := jwtx.NewHS256Signer(testSecret, "someone-else")
	require.NoError(t, err)
	_, err = impostor.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrWrongIssuer)
}
