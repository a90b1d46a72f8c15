package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mcourse/internal/limiter"
	"github.com/xxxsen/mcourse/internal/metrics"
	"github.com/xxxsen/mcourse/internal/model"
	"github.com/xxxsen/mcourse/internal/otp"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
	"github.com/xxxsen/mcourse/internal/pkg/jwt"
	"github.com/xxxsen/mcourse/internal/pkg/password"
)

const (
	TransitionLogin         = "login"
	TransitionVerifyOTP     = "verify_otp"
	TransitionResendOTP     = "resend_otp"
	TransitionVerifyRequest = "verify_request"
	TransitionLogout        = "logout"
)

const maxCodeAttempts = 8

// compareDummy keeps unknown-account logins as slow as a real credential check.
var compareDummy = password.CompareDummy

type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, kind, email string) (*model.Account, error)
	GetByPhone(ctx context.Context, kind, phone string) (*model.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, mtime int64) error
	UpdateName(ctx context.Context, id, name string, mtime int64) error
	SetActive(ctx context.Context, id string, active bool, mtime int64) error
	List(ctx context.Context, q model.AccountListQuery) ([]model.Account, uint, error)
}

// SessionStore persists one SessionState per account. Save overwrites, last writer wins.
type SessionStore interface {
	Get(ctx context.Context, accountID string) (*model.SessionState, error)
	GetByVerificationToken(ctx context.Context, token string) (*model.SessionState, error)
	Save(ctx context.Context, st *model.SessionState) error
	ClearExpiredChallenges(ctx context.Context, before int64) (int64, error)
}

type AuthOptions struct {
	OTPTTL                    time.Duration
	SessionTTL                time.Duration
	ReauthWindow              time.Duration
	TokenTTL                  time.Duration
	HideAccountExistence      bool
	AutoRegisterPhone         bool
	EnforceRequestFingerprint bool
	DebugOTPEcho              bool
}

func (o AuthOptions) withDefaults() AuthOptions {
	if o.OTPTTL <= 0 {
		o.OTPTTL = 5 * time.Minute
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 24 * time.Hour
	}
	if o.ReauthWindow <= 0 {
		o.ReauthWindow = time.Hour
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = 24 * time.Hour
	}
	return o
}

type AuthDeps struct {
	Accounts     AccountStore
	Sessions     SessionStore
	Generator    otp.Generator
	Sender       OTPSender
	LoginLimiter limiter.AttemptLimiter
	OTPLimiter   limiter.AttemptLimiter
	Now          func() time.Time
}

type AuthService struct {
	accounts     AccountStore
	sessions     SessionStore
	generator    otp.Generator
	sender       OTPSender
	loginLimiter limiter.AttemptLimiter
	otpLimiter   limiter.AttemptLimiter
	now          func() time.Time
	jwtSecret    []byte
	opts         AuthOptions
}

func NewAuthService(deps AuthDeps, secret []byte, opts AuthOptions) *AuthService {
	s := &AuthService{
		accounts:     deps.Accounts,
		sessions:     deps.Sessions,
		generator:    deps.Generator,
		sender:       deps.Sender,
		loginLimiter: deps.LoginLimiter,
		otpLimiter:   deps.OTPLimiter,
		now:          deps.Now,
		jwtSecret:    secret,
		opts:         opts.withDefaults(),
	}
	if s.generator == nil {
		s.generator = otp.NewRandomGenerator(otp.DefaultDigits)
	}
	if s.sender == nil {
		s.sender = NewLogSender()
	}
	if s.loginLimiter == nil {
		s.loginLimiter = limiter.Noop()
	}
	if s.otpLimiter == nil {
		s.otpLimiter = limiter.Noop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// OTPEchoEnabled reports whether responses may carry the plaintext code.
func (s *AuthService) OTPEchoEnabled() bool {
	return otpEchoCompiled && s.opts.DebugOTPEcho
}

// OTPEchoCompiled reports whether the binary was built with the otpdebug tag.
func OTPEchoCompiled() bool {
	return otpEchoCompiled
}

type LoginInput struct {
	Kind        string
	Identifier  string
	Credential  string
	Fingerprint string
}

type AuthResult struct {
	Token   string               `json:"token"`
	Account model.AccountSummary `json:"account"`
}

// LoginResult holds either a challenge (OTPRequired) or a session token.
type LoginResult struct {
	OTPRequired       bool
	VerificationToken string
	OTP               string
	Auth              *AuthResult
}

type ResendResult struct {
	OTP string
}

// Principal is what a verified request carries downstream.
type Principal struct {
	AccountID   string
	Kind        string
	Fingerprint string
	IssuedAt    time.Time
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	res, err := s.login(ctx, in)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = appErr.Reason(err)
	} else if res.OTPRequired {
		outcome = metrics.OutcomeOTPRequired
	}
	metrics.ObserveTransition(TransitionLogin, outcome)
	return res, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := validateKind(in.Kind); err != nil {
		return nil, err
	}
	id, err := parseIdentifier(in.Identifier)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("transition", TransitionLogin), zap.String("kind", in.Kind))
	limitKey := "login:" + in.Kind + ":" + id.value
	if err := s.checkLimit(ctx, s.loginLimiter, limitKey); err != nil {
		return nil, err
	}
	account, err := s.lookupForLogin(ctx, in.Kind, id)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) || errors.Is(err, appErr.ErrInvalidCredential) {
			compareDummy(in.Credential)
			s.recordFailure(ctx, s.loginLimiter, limitKey)
			logger.Warn("login rejected", zap.Error(err))
			return nil, s.hideExistence(err)
		}
		return nil, err
	}
	logger = logger.With(zap.String("account_id", account.ID))
	if account.HasPassword() {
		if in.Credential == "" {
			return nil, appErr.Invalidf("credential is required")
		}
		if err := password.Compare(account.PasswordHash, in.Credential); err != nil {
			s.recordFailure(ctx, s.loginLimiter, limitKey)
			logger.Warn("login rejected", zap.String("reason", "credential mismatch"))
			return nil, appErr.ErrInvalidCredential
		}
	}
	_ = s.loginLimiter.Reset(ctx, limitKey)

	st, err := s.sessions.Get(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	now := s.now()
	if s.challengeRequired(account, st, in.Fingerprint, now) {
		vt, code, err := s.issueChallenge(ctx, account, st, now)
		if err != nil {
			return nil, err
		}
		logger.Info("otp challenge issued")
		res := &LoginResult{OTPRequired: true, VerificationToken: vt}
		if s.OTPEchoEnabled() {
			res.OTP = code
		}
		return res, nil
	}
	auth, err := s.authenticate(ctx, account, st, in.Fingerprint, now)
	if err != nil {
		return nil, err
	}
	logger.Info("login completed without challenge")
	return &LoginResult{Auth: auth}, nil
}

func (s *AuthService) lookupForLogin(ctx context.Context, kind string, id identifier) (*model.Account, error) {
	var (
		account *model.Account
		err     error
	)
	if id.typ == identifierEmail {
		account, err = s.accounts.GetByEmail(ctx, kind, id.value)
	} else {
		account, err = s.accounts.GetByPhone(ctx, kind, id.value)
	}
	if errors.Is(err, appErr.ErrNotFound) && id.typ == identifierPhone && kind == model.AccountKindUser && s.opts.AutoRegisterPhone {
		return s.createPhoneAccount(ctx, id.value)
	}
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, appErr.ErrNotFound
	}
	return account, nil
}

func (s *AuthService) createPhoneAccount(ctx context.Context, phone string) (*model.Account, error) {
	now := s.now().Unix()
	account := &model.Account{
		ID:          newID(),
		Kind:        model.AccountKindUser,
		PhoneNumber: phone,
		Active:      true,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, appErr.ErrConflict) {
			return s.accounts.GetByPhone(ctx, model.AccountKindUser, phone)
		}
		return nil, err
	}
	logutil.GetLogger(ctx).Info("phone account created on first login", zap.String("account_id", account.ID))
	return account, nil
}

// challengeRequired is true for a new device, a stale or absent session, or an account without a password.
func (s *AuthService) challengeRequired(account *model.Account, st *model.SessionState, fp string, now time.Time) bool {
	if !account.HasPassword() {
		return true
	}
	if fp == "" || st.DeviceFingerprint == "" || fp != st.DeviceFingerprint {
		return true
	}
	if st.LastLoginAt.IsZero() {
		return true
	}
	return now.Sub(st.LastLoginAt) >= s.opts.SessionTTL
}

// issueChallenge delivers a fresh code before persisting it, so a failed delivery leaves the record untouched.
func (s *AuthService) issueChallenge(ctx context.Context, account *model.Account, st *model.SessionState, now time.Time) (string, string, error) {
	vt, err := s.generator.VerificationToken()
	if err != nil {
		return "", "", fmt.Errorf("generate verification token: %w", err)
	}
	code, err := s.generator.Code()
	if err != nil {
		return "", "", fmt.Errorf("generate otp: %w", err)
	}
	if err := s.deliver(ctx, account, code); err != nil {
		return "", "", err
	}
	st.BeginChallenge(otp.HashCode(vt, code), vt, now.Add(s.opts.OTPTTL))
	st.Mtime = now.Unix()
	if err := s.sessions.Save(ctx, st); err != nil {
		return "", "", fmt.Errorf("save challenge: %w", err)
	}
	return vt, code, nil
}

func (s *AuthService) deliver(ctx context.Context, account *model.Account, code string) error {
	to := Destination{Channel: ChannelSMS, Address: account.PhoneNumber}
	if account.Email != "" && (account.PhoneNumber == "" || account.Kind == model.AccountKindAdmin) {
		to = Destination{Channel: ChannelEmail, Address: account.Email}
	}
	if to.Address == "" {
		return fmt.Errorf("account %s has no otp destination: %w", account.ID, appErr.ErrDeliveryFailed)
	}
	if err := s.sender.Send(ctx, to, code); err != nil {
		logutil.GetLogger(ctx).Error("otp delivery failed",
			zap.String("account_id", account.ID),
			zap.String("channel", to.Channel),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", appErr.ErrDeliveryFailed, err)
	}
	return nil
}

func (s *AuthService) authenticate(ctx context.Context, account *model.Account, st *model.SessionState, fp string, now time.Time) (*AuthResult, error) {
	token, err := jwt.GenerateToken(jwt.TokenInput{
		AccountID:   account.ID,
		Kind:        account.Kind,
		Fingerprint: fp,
		IssuedAt:    now,
	}, s.jwtSecret, s.opts.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	st.Authenticate(token, fp, now)
	st.Mtime = now.Unix()
	if err := s.sessions.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &AuthResult{Token: token, Account: account.Summary()}, nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, kind, verificationToken, code, fp string) (*AuthResult, error) {
	res, err := s.verifyOTP(ctx, kind, verificationToken, code, fp)
	metrics.ObserveTransition(TransitionVerifyOTP, outcomeOf(err))
	return res, err
}

func (s *AuthService) verifyOTP(ctx context.Context, kind, verificationToken, code, fp string) (*AuthResult, error) {
	if verificationToken == "" {
		return nil, appErr.Invalidf("verificationToken is required")
	}
	if code == "" {
		return nil, appErr.Invalidf("otp is required")
	}
	logger := logutil.GetLogger(ctx).With(zap.String("transition", TransitionVerifyOTP), zap.String("kind", kind))
	limitKey := "otp:" + verificationToken
	if err := s.checkLimit(ctx, s.otpLimiter, limitKey); err != nil {
		return nil, err
	}
	st, account, err := s.loadChallenge(ctx, kind, verificationToken)
	if err != nil {
		logger.Warn("otp verification rejected", zap.Error(err))
		return nil, err
	}
	logger = logger.With(zap.String("account_id", account.ID))
	if st.HasExpiredChallenge() {
		logger.Warn("otp verification rejected", zap.String("reason", "expired and swept"))
		return nil, appErr.ErrOTPExpired
	}
	if !otp.Matches(st.OTPHash, verificationToken, code) {
		s.recordFailure(ctx, s.otpLimiter, limitKey)
		logger.Warn("otp verification rejected", zap.String("reason", "code mismatch"))
		return nil, appErr.ErrInvalidOTP
	}
	now := s.now()
	if now.After(st.OTPExpiresAt) {
		logger.Warn("otp verification rejected", zap.String("reason", "expired"))
		return nil, appErr.ErrOTPExpired
	}
	res, err := s.authenticate(ctx, account, st, fp, now)
	if err != nil {
		return nil, err
	}
	_ = s.otpLimiter.Reset(ctx, limitKey)
	logger.Info("otp verified")
	return res, nil
}

// loadChallenge resolves a verification token to its session and account, including challenges
// whose code was swept after expiry. Any miss is InvalidToken.
func (s *AuthService) loadChallenge(ctx context.Context, kind, verificationToken string) (*model.SessionState, *model.Account, error) {
	st, err := s.sessions.GetByVerificationToken(ctx, verificationToken)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, nil, appErr.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load challenge: %w", err)
	}
	if !st.HasChallenge() && !st.HasExpiredChallenge() {
		return nil, nil, appErr.ErrInvalidToken
	}
	account, err := s.accounts.GetByID(ctx, st.AccountID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, nil, appErr.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load account: %w", err)
	}
	if account.Kind != kind || !account.Active {
		return nil, nil, appErr.ErrInvalidToken
	}
	return st, account, nil
}

func (s *AuthService) ResendOTP(ctx context.Context, kind, verificationToken string) (*ResendResult, error) {
	res, err := s.resendOTP(ctx, kind, verificationToken)
	metrics.ObserveTransition(TransitionResendOTP, outcomeOf(err))
	return res, err
}

func (s *AuthService) resendOTP(ctx context.Context, kind, verificationToken string) (*ResendResult, error) {
	if verificationToken == "" {
		return nil, appErr.Invalidf("verificationToken is required")
	}
	logger := logutil.GetLogger(ctx).With(zap.String("transition", TransitionResendOTP), zap.String("kind", kind))
	st, account, err := s.loadChallenge(ctx, kind, verificationToken)
	if err != nil {
		logger.Warn("otp resend rejected", zap.Error(err))
		return nil, err
	}
	code, hash, err := s.freshCode(verificationToken, st.OTPHash)
	if err != nil {
		return nil, err
	}
	if err := s.deliver(ctx, account, code); err != nil {
		return nil, err
	}
	now := s.now()
	st.BeginChallenge(hash, verificationToken, now.Add(s.opts.OTPTTL))
	st.Mtime = now.Unix()
	if err := s.sessions.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save challenge: %w", err)
	}
	logger.Info("otp resent", zap.String("account_id", account.ID))
	res := &ResendResult{}
	if s.OTPEchoEnabled() {
		res.OTP = code
	}
	return res, nil
}

// freshCode draws codes until one differs from the outstanding one.
func (s *AuthService) freshCode(verificationToken, previousHash string) (string, string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.generator.Code()
		if err != nil {
			return "", "", fmt.Errorf("generate otp: %w", err)
		}
		hash := otp.HashCode(verificationToken, code)
		if hash != previousHash {
			return code, hash, nil
		}
	}
	return "", "", fmt.Errorf("generate otp: no distinct code after %d draws", maxCodeAttempts)
}

// VerifyRequest validates a bearer token against the stored session. It never mutates state.
// requestFP is only compared when EnforceRequestFingerprint is set.
func (s *AuthService) VerifyRequest(ctx context.Context, token, requestFP string) (*Principal, error) {
	p, err := s.verifyRequest(ctx, token, requestFP)
	if err != nil {
		metrics.ObserveTransition(TransitionVerifyRequest, appErr.Reason(err))
	}
	return p, err
}

func (s *AuthService) verifyRequest(ctx context.Context, token, requestFP string) (*Principal, error) {
	now := s.now()
	claims, err := jwt.ParseToken(token, s.jwtSecret, now)
	if err != nil {
		if jwt.IsExpired(err) {
			return nil, appErr.ErrOTPRequired
		}
		return nil, appErr.ErrInvalidToken
	}
	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.Kind != claims.Kind || !account.Active {
		return nil, appErr.ErrInvalidToken
	}
	st, err := s.sessions.Get(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if st.LastLoginAt.IsZero() {
		return nil, appErr.ErrOTPRequired
	}
	elapsed := now.Sub(st.LastLoginAt)
	if elapsed >= s.opts.SessionTTL {
		return nil, appErr.ErrOTPRequired
	}
	if account.Kind == model.AccountKindAdmin && elapsed >= s.opts.ReauthWindow {
		return nil, appErr.ErrReauthRequired
	}
	if claims.Fingerprint != st.DeviceFingerprint {
		return nil, appErr.ErrDeviceMismatch
	}
	if s.opts.EnforceRequestFingerprint && requestFP != "" && requestFP != claims.Fingerprint {
		return nil, appErr.ErrDeviceMismatch
	}
	return &Principal{
		AccountID:   account.ID,
		Kind:        account.Kind,
		Fingerprint: claims.Fingerprint,
		IssuedAt:    claims.IssuedAt.Time,
	}, nil
}

// Logout clears the session of the token's account. The token only needs a valid signature
// and the given account kind, so an expired token can still log out. Repeated calls succeed.
func (s *AuthService) Logout(ctx context.Context, kind, token string) error {
	err := s.logout(ctx, kind, token)
	metrics.ObserveTransition(TransitionLogout, outcomeOf(err))
	return err
}

func (s *AuthService) logout(ctx context.Context, kind, token string) error {
	if err := validateKind(kind); err != nil {
		return err
	}
	claims, err := jwt.DecodeToken(token, s.jwtSecret)
	if err != nil || claims.Kind != kind {
		return appErr.ErrInvalidToken
	}
	if err := s.resetSession(ctx, claims.AccountID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("logged out",
		zap.String("transition", TransitionLogout),
		zap.String("account_id", claims.AccountID),
	)
	return nil
}

func (s *AuthService) resetSession(ctx context.Context, accountID string) error {
	st, err := s.sessions.Get(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	st.Reset()
	st.Mtime = s.now().Unix()
	if err := s.sessions.Save(ctx, st); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *AuthService) checkLimit(ctx context.Context, l limiter.AttemptLimiter, key string) error {
	err := l.Check(ctx, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiter.ErrLimited):
		return appErr.ErrTooMany
	default:
		logutil.GetLogger(ctx).Warn("attempt limiter unavailable, allowing request", zap.Error(err))
		return nil
	}
}

func (s *AuthService) recordFailure(ctx context.Context, l limiter.AttemptLimiter, key string) {
	if err := l.Increment(ctx, key); err != nil && !errors.Is(err, limiter.ErrLimited) {
		logutil.GetLogger(ctx).Warn("record failed attempt", zap.Error(err))
	}
}

func (s *AuthService) hideExistence(err error) error {
	if s.opts.HideAccountExistence && errors.Is(err, appErr.ErrNotFound) {
		return appErr.ErrInvalidCredential
	}
	return err
}

func validateKind(kind string) error {
	if kind != model.AccountKindAdmin && kind != model.AccountKindUser {
		return appErr.Invalidf("unknown account kind %q", kind)
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	return appErr.Reason(err)
}
