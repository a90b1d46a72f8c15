package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mcourse/internal/model"
	"github.com/xxxsen/mcourse/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
	"github.com/xxxsen/mcourse/internal/pkg/timeutil"
)

var sessionFields = []string{"account_id", "state", "otp_hash", "otp_expires_at", "verification_token", "device_fingerprint", "session_token", "last_login_at", "mtime"}

const upsertSessionSQL = `INSERT INTO account_sessions (account_id, state, otp_hash, otp_expires_at, verification_token, device_fingerprint, session_token, last_login_at, mtime)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (account_id) DO UPDATE SET
	state = EXCLUDED.state,
	otp_hash = EXCLUDED.otp_hash,
	otp_expires_at = EXCLUDED.otp_expires_at,
	verification_token = EXCLUDED.verification_token,
	device_fingerprint = EXCLUDED.device_fingerprint,
	session_token = EXCLUDED.session_token,
	last_login_at = EXCLUDED.last_login_at,
	mtime = EXCLUDED.mtime`

const clearExpiredChallengesSQL = `UPDATE account_sessions SET
	state = CASE WHEN session_token <> '' THEN 'authenticated' ELSE 'anonymous' END,
	otp_hash = '',
	otp_expires_at = 0,
	mtime = ?
WHERE otp_expires_at > 0 AND otp_expires_at < ?`

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Get returns the session record of an account; an account that never logged in gets an anonymous record.
func (r *SessionRepo) Get(ctx context.Context, accountID string) (*model.SessionState, error) {
	st, err := r.getOne(ctx, map[string]interface{}{"account_id": accountID})
	if err == appErr.ErrNotFound {
		return model.NewAnonymousState(accountID), nil
	}
	return st, err
}

func (r *SessionRepo) GetByVerificationToken(ctx context.Context, token string) (*model.SessionState, error) {
	if token == "" {
		return nil, appErr.ErrNotFound
	}
	return r.getOne(ctx, map[string]interface{}{"verification_token": token})
}

func (r *SessionRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.SessionState, error) {
	where["_limit"] = []uint{0, 1}
	sqlStr, args, err := builder.BuildSelect("account_sessions", where, sessionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var (
		st           model.SessionState
		state        string
		otpExpiresAt int64
		lastLoginAt  int64
	)
	if err := rows.Scan(&st.AccountID, &state, &st.OTPHash, &otpExpiresAt, &st.VerificationToken, &st.DeviceFingerprint, &st.SessionToken, &lastLoginAt, &st.Mtime); err != nil {
		return nil, err
	}
	st.State = model.SessionStateName(state)
	st.OTPExpiresAt = timeutil.FromUnix(otpExpiresAt)
	st.LastLoginAt = timeutil.FromUnix(lastLoginAt)
	return &st, nil
}

// Save upserts the whole record, last writer wins.
func (r *SessionRepo) Save(ctx context.Context, st *model.SessionState) error {
	args := []interface{}{
		st.AccountID,
		string(st.State),
		st.OTPHash,
		timeutil.UnixOrZero(st.OTPExpiresAt),
		st.VerificationToken,
		st.DeviceFingerprint,
		st.SessionToken,
		timeutil.UnixOrZero(st.LastLoginAt),
		st.Mtime,
	}
	sqlStr, args := dbutil.Finalize(upsertSessionSQL, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SessionRepo) ClearExpiredChallenges(ctx context.Context, before int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(clearExpiredChallengesSQL, []interface{}{timeutil.NowUnix(), before})
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
