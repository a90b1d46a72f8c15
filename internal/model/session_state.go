package model

import "time"

type SessionStateName string

const (
	StateAnonymous     SessionStateName = "anonymous"
	StateAwaitingOTP   SessionStateName = "awaiting_otp"
	StateAuthenticated SessionStateName = "authenticated"
)

// SessionState is the per-account authentication record. OTPHash, OTPExpiresAt and
// VerificationToken are set and cleared together.
type SessionState struct {
	AccountID         string           `json:"accountId"`
	State             SessionStateName `json:"state"`
	OTPHash           string           `json:"-"`
	OTPExpiresAt      time.Time        `json:"otpExpiresAt"`
	VerificationToken string           `json:"-"`
	DeviceFingerprint string           `json:"-"`
	SessionToken      string           `json:"-"`
	LastLoginAt       time.Time        `json:"lastLoginAt"`
	Mtime             int64            `json:"mtime"`
}

func NewAnonymousState(accountID string) *SessionState {
	return &SessionState{AccountID: accountID, State: StateAnonymous}
}

func (s *SessionState) HasChallenge() bool {
	return s.VerificationToken != "" && s.OTPHash != ""
}

func (s *SessionState) BeginChallenge(otpHash, verificationToken string, expiresAt time.Time) {
	s.State = StateAwaitingOTP
	s.OTPHash = otpHash
	s.VerificationToken = verificationToken
	s.OTPExpiresAt = expiresAt
}

// HasExpiredChallenge reports a challenge whose code was dropped after expiry. Only the
// verification token is kept so late verify and resend calls still resolve.
func (s *SessionState) HasExpiredChallenge() bool {
	return s.VerificationToken != "" && s.OTPHash == ""
}

// ExpireChallenge drops the code and its expiry but keeps the verification token.
func (s *SessionState) ExpireChallenge() {
	s.OTPHash = ""
	s.OTPExpiresAt = time.Time{}
	if s.SessionToken != "" {
		s.State = StateAuthenticated
	} else {
		s.State = StateAnonymous
	}
}

func (s *SessionState) ClearChallenge() {
	s.OTPHash = ""
	s.VerificationToken = ""
	s.OTPExpiresAt = time.Time{}
}

func (s *SessionState) Authenticate(token, fingerprint string, at time.Time) {
	s.ClearChallenge()
	s.State = StateAuthenticated
	s.SessionToken = token
	s.DeviceFingerprint = fingerprint
	s.LastLoginAt = at
}

func (s *SessionState) Reset() {
	s.ClearChallenge()
	s.State = StateAnonymous
	s.SessionToken = ""
	s.DeviceFingerprint = ""
	s.LastLoginAt = time.Time{}
}
