package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionStateTransitions(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	st := NewAnonymousState("acc-1")
	require.Equal(t, StateAnonymous, st.State)
	require.False(t, st.HasChallenge())

	st.BeginChallenge("hash", "vt", now.Add(5*time.Minute))
	require.Equal(t, StateAwaitingOTP, st.State)
	require.True(t, st.HasChallenge())

	st.ExpireChallenge()
	require.Equal(t, StateAnonymous, st.State)
	require.False(t, st.HasChallenge())
	require.True(t, st.HasExpiredChallenge())
	require.True(t, st.OTPExpiresAt.IsZero())
	require.Equal(t, "vt", st.VerificationToken)

	st.BeginChallenge("hash2", "vt", now.Add(10*time.Minute))
	require.True(t, st.HasChallenge())
	require.False(t, st.HasExpiredChallenge())

	st.Authenticate("token", "fp", now)
	require.Equal(t, StateAuthenticated, st.State)
	require.False(t, st.HasExpiredChallenge())
	require.Empty(t, st.VerificationToken)
	require.False(t, st.HasChallenge())
	require.True(t, st.OTPExpiresAt.IsZero())
	require.Equal(t, "fp", st.DeviceFingerprint)
	require.Equal(t, now, st.LastLoginAt)

	st.Reset()
	require.Equal(t, StateAnonymous, st.State)
	require.Empty(t, st.SessionToken)
	require.Empty(t, st.DeviceFingerprint)
	require.True(t, st.LastLoginAt.IsZero())
}
