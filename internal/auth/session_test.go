package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenService_Roundtrip(t *testing.T) {
	s := NewTokenService("secret")

	for _, id := range []int64{1, 2, 42, 1 << 40} {
		token, err := s.Issue(id)
		require.NoError(t, err)

		got, err := s.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").Issue(7)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Expiry(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenService("secret", WithClock(fixedClock(issuedAt)))

	token, err := issuer.Issue(3)
	require.NoError(t, err)

	justBefore := NewTokenService("secret", WithClock(fixedClock(issuedAt.Add(DefaultTokenTTL-time.Minute))))
	id, err := justBefore.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	after := NewTokenService("secret", WithClock(fixedClock(issuedAt.Add(DefaultTokenTTL+time.Minute))))
	_, err = after.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_CustomTTL(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewTokenService("secret", WithTTL(time.Hour), WithClock(fixedClock(issuedAt)))
	assert.Equal(t, time.Hour, s.TTL())

	token, err := s.Issue(1)
	require.NoError(t, err)

	later := NewTokenService("secret", WithClock(fixedClock(issuedAt.Add(2*time.Hour))))
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_MissingSecret(t *testing.T) {
	s := NewTokenService("")

	_, err := s.Issue(1)
	assert.ErrorIs(t, err, ErrMissingSecret)

	token, err := NewTokenService("secret").Issue(1)
	require.NoError(t, err)
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrMissingSecret)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Malformed(t *testing.T) {
	s := NewTokenService("secret")

	for _, tok := range []string{"", "abc", "a.b.c", strings.Repeat("x", 300)} {
		_, err := s.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestTokenService_RejectsNoneAndMissingExp(t *testing.T) {
	s := NewTokenService("secret")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1})
	signed, err := noExp.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsMissingUserID(t *testing.T) {
	s := NewTokenService("secret")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = s.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
