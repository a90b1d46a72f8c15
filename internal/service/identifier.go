package service

import (
	"net/mail"
	"strings"

	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

type identifierType int

const (
	identifierEmail identifierType = iota + 1
	identifierPhone
)

type identifier struct {
	typ   identifierType
	value string
}

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// parseIdentifier normalises an email (lower case) or phone number (digits with optional leading +).
func parseIdentifier(raw string) (identifier, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return identifier{}, appErr.Invalidf("identifier is required")
	}
	if strings.Contains(v, "@") {
		email, ok := normalizeEmail(v)
		if !ok {
			return identifier{}, appErr.Invalidf("identifier is not a valid email")
		}
		return identifier{typ: identifierEmail, value: email}, nil
	}
	phone, ok := normalizePhone(v)
	if !ok {
		return identifier{}, appErr.Invalidf("identifier must be an email or a phone number")
	}
	return identifier{typ: identifierPhone, value: phone}, nil
}

func normalizeEmail(v string) (string, bool) {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

func normalizePhone(v string) (string, bool) {
	v = strings.NewReplacer(" ", "", "-", "").Replace(v)
	digits := strings.TrimPrefix(v, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", false
	}
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return "", false
		}
	}
	return v, true
}
