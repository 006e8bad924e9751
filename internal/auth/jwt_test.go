package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func generateKeyPair(t *testing.T) (privatePEM, publicPEM string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	privateDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	privatePEM = string(pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateDER,
	}))

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM = string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	}))

	return privatePEM, publicPEM
}

func TestNewVerifierFromPEM(t *testing.T) {
	t.Run("empty public key", func(t *testing.T) {
		v, err := NewVerifierFromPEM("")
		require.Error(t, err)
		require.Nil(t, v)
	})

	t.Run("invalid PEM", func(t *testing.T) {
		v, err := NewVerifierFromPEM("not a pem")
		require.Error(t, err)
		require.Nil(t, v)
	})

	t.Run("valid public key", func(t *testing.T) {
		_, publicPEM := generateKeyPair(t)
		v, err := NewVerifierFromPEM(publicPEM)
		require.NoError(t, err)
		require.NotNil(t, v)
	})
}

func TestSignAndVerify(t *testing.T) {
	privatePEM, publicPEM := generateKeyPair(t)
	verifier, err := NewVerifierFromPEM(publicPEM)
	require.NoError(t, err)

	principalID := uuid.Must(uuid.NewV7())

	t.Run("round trip", func(t *testing.T) {
		token, err := SignToken(privatePEM, principalID, time.Hour)
		require.NoError(t, err)

		got, err := verifier.PrincipalID(token)
		require.NoError(t, err)
		require.Equal(t, principalID, got)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token, err := SignToken(privatePEM, principalID, -time.Minute)
		require.NoError(t, err)

		_, err = verifier.PrincipalID(token)
		require.Error(t, err)
	})

	t.Run("token signed with another key rejected", func(t *testing.T) {
		otherPrivate, _ := generateKeyPair(t)
		token, err := SignToken(otherPrivate, principalID, time.Hour)
		require.NoError(t, err)

		_, err = verifier.PrincipalID(token)
		require.Error(t, err)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := verifier.PrincipalID("not.a.token")
		require.Error(t, err)
	})
}
