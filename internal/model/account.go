package model

const (
	AccountKindAdmin = "admin"
	AccountKindUser  = "user"
)

type Account struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Email        string `json:"email,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	Name         string `json:"name,omitempty"`
	PasswordHash string `json:"-"`
	Active       bool   `json:"active"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}

func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}

func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:          a.ID,
		Kind:        a.Kind,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		Name:        a.Name,
	}
}

type AccountSummary struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Name        string `json:"name,omitempty"`
}

type AccountListQuery struct {
	Kind   string
	Search string
	Page   uint
	Limit  uint
	SortBy string
	Order  string
}

type AccountPage struct {
	Accounts  []Account `json:"accounts"`
	Page      uint      `json:"page"`
	PageCount uint      `json:"pageCount"`
	Total     uint      `json:"total"`
}
