// Package memstore holds in-memory account and session stores with the same
// semantics as the postgres repositories.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/mcourse/internal/model"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

type AccountStore struct {
	mu   sync.Mutex
	byID map[string]model.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{byID: make(map[string]model.Account)}
}

func (m *AccountStore) Create(_ context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Kind != account.Kind {
			continue
		}
		if (account.Email != "" && a.Email == account.Email) || (account.PhoneNumber != "" && a.PhoneNumber == account.PhoneNumber) {
			return appErr.ErrConflict
		}
	}
	m.byID[account.ID] = *account
	return nil
}

func (m *AccountStore) GetByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &a, nil
}

func (m *AccountStore) find(match func(model.Account) bool) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (m *AccountStore) GetByEmail(_ context.Context, kind, email string) (*model.Account, error) {
	return m.find(func(a model.Account) bool { return a.Kind == kind && email != "" && a.Email == email })
}

func (m *AccountStore) GetByPhone(_ context.Context, kind, phone string) (*model.Account, error) {
	return m.find(func(a model.Account) bool { return a.Kind == kind && phone != "" && a.PhoneNumber == phone })
}

func (m *AccountStore) update(id string, fn func(a *model.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return appErr.ErrNotFound
	}
	fn(&a)
	m.byID[id] = a
	return nil
}

func (m *AccountStore) UpdatePassword(_ context.Context, id, hash string, mtime int64) error {
	return m.update(id, func(a *model.Account) { a.PasswordHash, a.Mtime = hash, mtime })
}

func (m *AccountStore) UpdateName(_ context.Context, id, name string, mtime int64) error {
	return m.update(id, func(a *model.Account) { a.Name, a.Mtime = name, mtime })
}

func (m *AccountStore) SetActive(_ context.Context, id string, active bool, mtime int64) error {
	return m.update(id, func(a *model.Account) { a.Active, a.Mtime = active, mtime })
}

func (m *AccountStore) List(_ context.Context, q model.AccountListQuery) ([]model.Account, uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Account
	for _, a := range m.byID {
		if a.Kind != q.Kind {
			continue
		}
		if q.Search != "" && !strings.Contains(a.Name+a.Email+a.PhoneNumber, q.Search) {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Ctime != all[j].Ctime {
			return all[i].Ctime > all[j].Ctime
		}
		return all[i].ID < all[j].ID
	})
	total := uint(len(all))
	if q.Limit == 0 {
		return all, total, nil
	}
	page := q.Page
	if page == 0 {
		page = 1
	}
	start := (page - 1) * q.Limit
	if start >= total {
		return []model.Account{}, total, nil
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

type SessionStore struct {
	mu      sync.Mutex
	byID    map[string]model.SessionState
	saveErr error
	saves   int
}

func NewSessionStore() *SessionStore {
	return &SessionStore{byID: make(map[string]model.SessionState)}
}

func (m *SessionStore) Get(_ context.Context, accountID string) (*model.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byID[accountID]
	if !ok {
		return model.NewAnonymousState(accountID), nil
	}
	return &st, nil
}

func (m *SessionStore) GetByVerificationToken(_ context.Context, token string) (*model.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.byID {
		if token != "" && st.VerificationToken == token {
			found := st
			return &found, nil
		}
	}
	return nil, appErr.ErrNotFound
}

// FailSaves makes every following Save return err; nil restores normal behaviour.
func (m *SessionStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves counts successful Save calls.
func (m *SessionStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *SessionStore) Save(_ context.Context, st *model.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.byID[st.AccountID] = *st
	return nil
}

func (m *SessionStore) ClearExpiredChallenges(_ context.Context, before int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, st := range m.byID {
		if st.OTPExpiresAt.IsZero() || st.OTPExpiresAt.Unix() >= before {
			continue
		}
		st.ExpireChallenge()
		m.byID[id] = st
		n++
	}
	return n, nil
}

// State returns a copy of the stored record, the zero value when absent.
func (m *SessionStore) State(accountID string) model.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[accountID]
}
