package otp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomGeneratorCode(t *testing.T) {
	gen := NewRandomGenerator(4)
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		code, err := gen.Code()
		require.NoError(t, err)
		require.True(t, IsNumeric(code, 4), code)
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 100)
}

func TestRandomGeneratorDefaultsDigits(t *testing.T) {
	code, err := (&RandomGenerator{}).Code()
	require.NoError(t, err)
	require.Len(t, code, DefaultDigits)
	require.Equal(t, DefaultDigits, NewRandomGenerator(0).Digits)
}

func TestVerificationTokenUnique(t *testing.T) {
	gen := NewRandomGenerator(4)
	a, err := gen.VerificationToken()
	require.NoError(t, err)
	b, err := gen.VerificationToken()
	require.NoError(t, err)
	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
}

func TestHashMatches(t *testing.T) {
	hash := HashCode("token-a", "1234")
	require.True(t, Matches(hash, "token-a", "1234"))
	require.False(t, Matches(hash, "token-a", "1235"))
	require.False(t, Matches(hash, "token-b", "1234"))
	require.False(t, Matches("", "token-a", "1234"))
	require.False(t, Matches(hash, "token-a", ""))
}

func TestIsNumeric(t *testing.T) {
	require.True(t, IsNumeric("0042", 4))
	require.False(t, IsNumeric("042", 4))
	require.False(t, IsNumeric("04a2", 4))
}
