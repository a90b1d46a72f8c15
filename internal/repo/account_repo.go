package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mcourse/internal/model"
	"github.com/xxxsen/mcourse/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

var accountFields = []string{"id", "kind", "email", "phone_number", "name", "password_hash", "active", "ctime", "mtime"}

var accountSortColumns = map[string]string{
	"ctime":        "ctime",
	"createdat":    "ctime",
	"created_at":   "ctime",
	"mtime":        "mtime",
	"name":         "name",
	"email":        "email",
	"phone_number": "phone_number",
	"phonenumber":  "phone_number",
}

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

func (r *AccountRepo) Create(ctx context.Context, account *model.Account) error {
	data := map[string]interface{}{
		"id":            account.ID,
		"kind":          account.Kind,
		"email":         account.Email,
		"phone_number":  account.PhoneNumber,
		"name":          account.Name,
		"password_hash": account.PasswordHash,
		"active":        account.Active,
		"ctime":         account.Ctime,
		"mtime":         account.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("accounts", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *AccountRepo) GetByEmail(ctx context.Context, kind, email string) (*model.Account, error) {
	if email == "" {
		return nil, appErr.ErrNotFound
	}
	return r.getOne(ctx, map[string]interface{}{"kind": kind, "email": email})
}

func (r *AccountRepo) GetByPhone(ctx context.Context, kind, phone string) (*model.Account, error) {
	if phone == "" {
		return nil, appErr.ErrNotFound
	}
	return r.getOne(ctx, map[string]interface{}{"kind": kind, "phone_number": phone})
}

func (r *AccountRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Account, error) {
	where["_limit"] = []uint{0, 1}
	sqlStr, args, err := builder.BuildSelect("accounts", where, accountFields)
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
	account, err := scanAccount(rows)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *AccountRepo) UpdatePassword(ctx context.Context, id, passwordHash string, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"password_hash": passwordHash,
		"mtime":         mtime,
	})
}

func (r *AccountRepo) UpdateName(ctx context.Context, id, name string, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"name":  name,
		"mtime": mtime,
	})
}

func (r *AccountRepo) SetActive(ctx context.Context, id string, active bool, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"active": active,
		"mtime":  mtime,
	})
}

func (r *AccountRepo) update(ctx context.Context, id string, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("accounts", map[string]interface{}{"id": id}, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context, q model.AccountListQuery) ([]model.Account, uint, error) {
	where := map[string]interface{}{"kind": q.Kind}
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + dbutil.EscapeLike(search) + "%"
		where["_custom_search"] = builder.Custom("(name ILIKE ? OR email ILIKE ? OR phone_number LIKE ?)", like, like, like)
	}
	total, err := r.count(ctx, where)
	if err != nil {
		return nil, 0, err
	}
	column, ok := accountSortColumns[strings.ToLower(q.SortBy)]
	if !ok {
		column = "ctime"
	}
	order := "desc"
	if strings.EqualFold(q.Order, "asc") {
		order = "asc"
	}
	where["_orderby"] = column + " " + order + ", id asc"
	if q.Limit > 0 {
		page := q.Page
		if page == 0 {
			page = 1
		}
		where["_limit"] = []uint{(page - 1) * q.Limit, q.Limit}
	}
	sqlStr, args, err := builder.BuildSelect("accounts", where, accountFields)
	if err != nil {
		return nil, 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()
	accounts := make([]model.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, total, rows.Err()
}

func (r *AccountRepo) count(ctx context.Context, where map[string]interface{}) (uint, error) {
	sqlStr, args, err := builder.BuildSelect("accounts", where, []string{"COUNT(1)"})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var total uint
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func scanAccount(rows *sql.Rows) (*model.Account, error) {
	var account model.Account
	if err := rows.Scan(&account.ID, &account.Kind, &account.Email, &account.PhoneNumber, &account.Name, &account.PasswordHash, &account.Active, &account.Ctime, &account.Mtime); err != nil {
		return nil, err
	}
	return &account, nil
}
