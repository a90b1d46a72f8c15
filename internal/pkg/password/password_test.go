package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

func TestHashCompare(t *testing.T) {
	hash, err := Hash("S3cret!x")
	require.NoError(t, err)
	require.NotEqual(t, "S3cret!x", hash)
	require.NoError(t, Compare(hash, "S3cret!x"))
	require.Error(t, Compare(hash, "S3cret!y"))
}

func TestCheckPolicy(t *testing.T) {
	tests := []struct {
		name  string
		plain string
		ok    bool
	}{
		{name: "too short", plain: "Ab1!", ok: false},
		{name: "no digit", plain: "Abcdef!", ok: false},
		{name: "no lower", plain: "ABCDE1!", ok: false},
		{name: "no upper", plain: "abcde1!", ok: false},
		{name: "no special", plain: "Abcde12", ok: false},
		{name: "valid", plain: "Abcde1!", ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPolicy(tt.plain)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, appErr.ErrInvalid))
			require.NotEmpty(t, appErr.InvalidMessage(err))
		})
	}
}

func TestCompareDummyUsesRealHash(t *testing.T) {
	CompareDummy("anything")
	cost, err := bcrypt.Cost(dummyHash)
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
	require.Error(t, Compare(string(dummyHash), "anything"))
}
