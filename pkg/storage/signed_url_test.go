package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerSignAndVerify(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("snap-1", "ab12/rooms.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	link, err := signer.Verify(token, false)
	require.NoError(t, err)
	assert.Equal(t, "snap-1", link.ID)
	assert.Equal(t, "ab12/rooms.csv", link.Path)
	assert.WithinDuration(t, expiresAt, link.ExpiresAt, time.Second)
}

func TestSignerExpired(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }

	token, _, err := signer.Sign("snap-1", "rooms.pdf")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = signer.Verify(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	link, err := signer.Verify(token, true)
	require.NoError(t, err)
	assert.Equal(t, "rooms.pdf", link.Path)
}

func TestSignerRejectsTampering(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Sign("snap-1", "rooms.csv")
	require.NoError(t, err)

	_, err = NewSigner("other", time.Hour).Verify(token, false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Verify("a.b.c", false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = signer.Sign("has.dot", "rooms.csv")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = NewSigner("", time.Hour).Sign("snap-1", "rooms.csv")
	assert.Error(t, err)
}

func TestSignerDerivesKeyFromSecret(t *testing.T) {
	signer := NewSigner("shared-with-jwt", time.Hour)
	assert.Len(t, signer.secret, 32)
	assert.NotEqual(t, []byte("shared-with-jwt"), signer.secret)
	assert.Equal(t, signer.secret, NewSigner("shared-with-jwt", time.Hour).secret)
}
