package password

import (
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

const MinLength = 6

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// CompareDummy runs a full bcrypt comparison against a throwaway hash, for login attempts
// that have no stored hash to check.
func CompareDummy(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mcourse-unknown-account"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

// CheckPolicy requires MinLength characters with a digit, a lower and upper case letter and a symbol.
func CheckPolicy(plain string) error {
	if len(plain) < MinLength {
		return appErr.Invalidf("password must be at least %d characters long", MinLength)
	}
	var digit, lower, upper, special bool
	for _, r := range plain {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		default:
			special = true
		}
	}
	switch {
	case !digit:
		return appErr.Invalidf("password must contain at least one number")
	case !lower:
		return appErr.Invalidf("password must contain at least one lowercase letter")
	case !upper:
		return appErr.Invalidf("password must contain at least one uppercase letter")
	case !special:
		return appErr.Invalidf("password must contain at least one special character")
	}
	return nil
}
