package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalid           = errors.New("invalid")
	ErrConflict          = errors.New("conflict")
	ErrTooMany           = errors.New("too many requests")
	ErrInternal          = errors.New("internal")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalidOTP        = errors.New("invalid otp")
	ErrOTPExpired        = errors.New("otp expired")
	ErrInvalidToken      = errors.New("invalid token")
	ErrOTPRequired       = errors.New("otp required")
	ErrReauthRequired    = errors.New("reauth required")
	ErrDeviceMismatch    = errors.New("device mismatch")
	ErrDeliveryFailed    = errors.New("otp delivery failed")
)

// invalidError carries a user-facing validation message and matches ErrInvalid.
type invalidError struct {
	msg string
}

func (e *invalidError) Error() string {
	return e.msg
}

func (e *invalidError) Unwrap() error {
	return ErrInvalid
}

func Invalidf(format string, args ...interface{}) error {
	return &invalidError{msg: fmt.Sprintf(format, args...)}
}

// InvalidMessage returns the validation detail of err, or "" when err carries none.
func InvalidMessage(err error) string {
	var ie *invalidError
	if errors.As(err, &ie) {
		return ie.msg
	}
	return ""
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

var reasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidCredential, "InvalidCredential"},
	{ErrInvalidOTP, "InvalidOtp"},
	{ErrOTPExpired, "OtpExpired"},
	{ErrInvalidToken, "InvalidToken"},
	{ErrOTPRequired, "OtpRequired"},
	{ErrReauthRequired, "ReauthRequired"},
	{ErrDeviceMismatch, "DeviceMismatch"},
	{ErrDeliveryFailed, "DeliveryFailed"},
	{ErrNotFound, "NotFound"},
	{ErrInvalid, "ValidationError"},
	{ErrConflict, "Conflict"},
	{ErrTooMany, "TooManyAttempts"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrForbidden, "Forbidden"},
}

// Reason returns the stable machine reason of err. Unclassified errors are "Internal".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "Internal"
}
