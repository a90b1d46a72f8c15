package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mcourse/internal/model"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
	"github.com/xxxsen/mcourse/internal/pkg/password"
)

const (
	maxNameLength    = 64
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type AccountService struct {
	accounts AccountStore
	sessions SessionStore
	now      func() time.Time
}

func NewAccountService(accounts AccountStore, sessions SessionStore, now func() time.Time) *AccountService {
	if now == nil {
		now = time.Now
	}
	return &AccountService{accounts: accounts, sessions: sessions, now: now}
}

type RegisterInput struct {
	Kind     string
	Name     string
	Email    string
	Phone    string
	Password string
}

// Register creates an account. Admins need a name, an email and a password that passes the policy.
// Users need an email or a phone; a user without a password logs in by OTP only.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*model.AccountSummary, error) {
	if err := validateKind(in.Kind); err != nil {
		return nil, err
	}
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	var email, phone string
	if v := strings.TrimSpace(in.Email); v != "" {
		var ok bool
		if email, ok = normalizeEmail(v); !ok {
			return nil, appErr.Invalidf("email is not valid")
		}
	}
	if v := strings.TrimSpace(in.Phone); v != "" {
		var ok bool
		if phone, ok = normalizePhone(v); !ok {
			return nil, appErr.Invalidf("phone number is not valid")
		}
	}
	if in.Kind == model.AccountKindAdmin {
		if name == "" || email == "" || in.Password == "" {
			return nil, appErr.Invalidf("name, email and password are required")
		}
	} else if email == "" && phone == "" {
		return nil, appErr.Invalidf("email or phone number is required")
	}
	if email != "" && phone == "" && in.Password == "" && in.Kind == model.AccountKindUser {
		return nil, appErr.Invalidf("password is required for email accounts")
	}
	var hash string
	if in.Password != "" {
		if err := password.CheckPolicy(in.Password); err != nil {
			return nil, err
		}
		if hash, err = password.Hash(in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	if err := s.ensureUnused(ctx, in.Kind, email, phone); err != nil {
		return nil, err
	}
	now := s.now().Unix()
	account := &model.Account{
		ID:           newID(),
		Kind:         in.Kind,
		Email:        email,
		PhoneNumber:  phone,
		Name:         name,
		PasswordHash: hash,
		Active:       true,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("kind", account.Kind),
	)
	summary := account.Summary()
	return &summary, nil
}

func (s *AccountService) ensureUnused(ctx context.Context, kind, email, phone string) error {
	if email != "" {
		if _, err := s.accounts.GetByEmail(ctx, kind, email); err == nil {
			return appErr.ErrConflict
		} else if !errors.Is(err, appErr.ErrNotFound) {
			return err
		}
	}
	if phone != "" {
		if _, err := s.accounts.GetByPhone(ctx, kind, phone); err == nil {
			return appErr.ErrConflict
		} else if !errors.Is(err, appErr.ErrNotFound) {
			return err
		}
	}
	return nil
}

// ChangePassword replaces the password and resets the session so every device has to log in again.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.HasPassword() {
		return appErr.Invalidf("account has no password")
	}
	if current == "" || next == "" {
		return appErr.Invalidf("current and new password are required")
	}
	if err := password.Compare(account.PasswordHash, current); err != nil {
		return appErr.ErrInvalidCredential
	}
	if current == next {
		return appErr.Invalidf("new password must differ from the current one")
	}
	if err := password.CheckPolicy(next); err != nil {
		return err
	}
	hash, err := password.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	if err := s.accounts.UpdatePassword(ctx, accountID, hash, now.Unix()); err != nil {
		return err
	}
	if err := s.resetSession(ctx, accountID, now); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("password changed", zap.String("account_id", accountID))
	return nil
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

func (s *AccountService) UpdateProfile(ctx context.Context, accountID, name string) (*model.Account, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, appErr.Invalidf("name is required")
	}
	if err := s.accounts.UpdateName(ctx, accountID, name, s.now().Unix()); err != nil {
		return nil, err
	}
	return s.accounts.GetByID(ctx, accountID)
}

func (s *AccountService) List(ctx context.Context, q model.AccountListQuery) (*model.AccountPage, error) {
	if err := validateKind(q.Kind); err != nil {
		return nil, err
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	accounts, total, err := s.accounts.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &model.AccountPage{
		Accounts:  accounts,
		Page:      q.Page,
		PageCount: (total + q.Limit - 1) / q.Limit,
		Total:     total,
	}, nil
}

// SetActive toggles an account. Deactivation also ends its session.
func (s *AccountService) SetActive(ctx context.Context, accountID string, active bool) error {
	now := s.now()
	if err := s.accounts.SetActive(ctx, accountID, active, now.Unix()); err != nil {
		return err
	}
	if !active {
		if err := s.resetSession(ctx, accountID, now); err != nil {
			return err
		}
	}
	logutil.GetLogger(ctx).Info("account active flag changed",
		zap.String("account_id", accountID),
		zap.Bool("active", active),
	)
	return nil
}

func (s *AccountService) resetSession(ctx context.Context, accountID string, now time.Time) error {
	st, err := s.sessions.Get(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	st.Reset()
	st.Mtime = now.Unix()
	return s.sessions.Save(ctx, st)
}

func normalizeName(v string) (string, error) {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) > maxNameLength {
		return "", appErr.Invalidf("name must be at most %d characters", maxNameLength)
	}
	return v, nil
}
