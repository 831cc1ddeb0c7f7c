package auth

import (
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("test-secret", "cwrk-planet", time.Minute)
	alice := domain.User{ID: 42, Username: "alice"}

	token, err := v.Sign(alice, time.Now(), time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, alice, got)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	v := NewVerifier("test-secret", "cwrk-planet", time.Minute)

	_, err := v.Verify("not-a-token")
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = v.Verify("")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	issuerA := NewVerifier("secret-a", "cwrk-planet", time.Minute)
	issuerB := NewVerifier("secret-b", "cwrk-planet", time.Minute)

	token, err := issuerA.Sign(domain.User{ID: 1, Username: "alice"}, time.Now(), time.Hour)
	require.NoError(t, err)

	_, err = issuerB.Verify(token)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifier_RejectsExpired(t *testing.T) {
	v := NewVerifier("test-secret", "cwrk-planet", 0)

	token, err := v.Sign(domain.User{ID: 1, Username: "alice"}, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}
