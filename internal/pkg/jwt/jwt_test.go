package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestGenerateAndParse(t *testing.T) {
	issued := time.Now().Add(-time.Minute).Truncate(time.Second)
	token, err := GenerateToken(TokenInput{AccountID: "acc-1", Kind: "admin", Fingerprint: "fp-a", IssuedAt: issued}, testSecret, 24*time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret, time.Time{})
	require.NoError(t, err)
	require.Equal(t, "acc-1", claims.AccountID)
	require.Equal(t, "acc-1", claims.Subject)
	require.Equal(t, "admin", claims.Kind)
	require.Equal(t, "fp-a", claims.Fingerprint)
	require.True(t, claims.IssuedAt.Time.Equal(issued))
	require.True(t, claims.ExpiresAt.Time.Equal(issued.Add(24*time.Hour)))
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(TokenInput{AccountID: "acc-1"}, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("other"), time.Time{})
	require.True(t, errors.Is(err, ErrInvalidToken))
	require.False(t, IsExpired(err))
	_, err = DecodeToken(token, []byte("other"))
	require.True(t, errors.Is(err, ErrInvalidToken))
}

func TestParseRejectsExpiredButDecodeAccepts(t *testing.T) {
	issued := time.Now().Add(-48 * time.Hour)
	token, err := GenerateToken(TokenInput{AccountID: "acc-2", IssuedAt: issued}, testSecret, 24*time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret, time.Time{})
	require.True(t, errors.Is(err, ErrInvalidToken))
	require.True(t, IsExpired(err))

	claims, err := DecodeToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "acc-2", claims.AccountID)
}

func TestParseUsesInjectedClock(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := GenerateToken(TokenInput{AccountID: "acc-3", IssuedAt: issued}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret, issued.Add(30*time.Minute))
	require.NoError(t, err)
	_, err = ParseToken(token, testSecret, issued.Add(2*time.Hour))
	require.Error(t, err)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{AccountID: "acc-4", RegisteredClaims: jwtlib.RegisteredClaims{IssuedAt: jwtlib.NewNumericDate(time.Now())}}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims)
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	_, err = ParseToken(signed, testSecret, time.Time{})
	require.Error(t, err)
}

func TestParseRejectsMissingAccount(t *testing.T) {
	token, err := GenerateToken(TokenInput{}, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, testSecret, time.Time{})
	require.True(t, errors.Is(err, ErrInvalidToken))
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateToken(TokenInput{AccountID: "x"}, nil, time.Hour)
	require.Error(t, err)
}
