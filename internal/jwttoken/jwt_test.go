package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService("test-signing-key", "idsync", "idsync-admin")
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateToken("operator@example.com", []string{"sync-admin"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "operator@example.com", claims.Subject)
	require.Equal(t, []string{"sync-admin"}, claims.Roles)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := newTestService()

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.jwt")
		require.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.GenerateToken("operator", nil, -time.Minute)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewService("different-key", "idsync", "idsync-admin")
		token, err := other.GenerateToken("operator", nil, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewService("test-signing-key", "someone-else", "idsync-admin")
		token, err := other.GenerateToken("operator", nil, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewService("test-signing-key", "idsync", "something-else")
		token, err := other.GenerateToken("operator", nil, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})
}
