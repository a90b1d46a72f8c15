package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mcourse/internal/pkg/errcode"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

// ReasonHeader carries the machine readable failure reason next to the numeric code.
const ReasonHeader = "X-Error-Reason"

type mapping struct {
	err     error
	status  int
	code    int
	message string
}

var mappings = []mapping{
	{appErr.ErrInvalidCredential, http.StatusUnauthorized, errcode.ErrInvalidCredential, "invalid credential"},
	{appErr.ErrInvalidOTP, http.StatusUnauthorized, errcode.ErrInvalidOTP, "invalid otp"},
	{appErr.ErrOTPExpired, http.StatusUnauthorized, errcode.ErrOTPExpired, "otp expired"},
	{appErr.ErrInvalidToken, http.StatusUnauthorized, errcode.ErrInvalidToken, "invalid token"},
	{appErr.ErrOTPRequired, http.StatusUnauthorized, errcode.ErrOTPRequired, "session expired, login again"},
	{appErr.ErrReauthRequired, http.StatusUnauthorized, errcode.ErrReauthRequired, "re-authentication required"},
	{appErr.ErrDeviceMismatch, http.StatusUnauthorized, errcode.ErrDeviceMismatch, "session is bound to another device"},
	{appErr.ErrUnauthorized, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized"},
	{appErr.ErrForbidden, http.StatusForbidden, errcode.ErrForbidden, "forbidden"},
	{appErr.ErrNotFound, http.StatusNotFound, errcode.ErrNotFound, "not found"},
	{appErr.ErrInvalid, http.StatusBadRequest, errcode.ErrInvalid, "invalid request"},
	{appErr.ErrConflict, http.StatusConflict, errcode.ErrConflict, "conflict"},
	{appErr.ErrTooMany, http.StatusTooManyRequests, errcode.ErrTooMany, "too many attempts"},
	{appErr.ErrDeliveryFailed, http.StatusBadGateway, errcode.ErrDeliveryFailed, "otp delivery failed"},
}

// FromError writes the failure body for err. Unknown errors become a generic 500.
func FromError(c *gin.Context, err error) {
	FromErrorWithStatus(c, err, 0)
}

// FromErrorWithStatus is FromError with the http status forced when status is non-zero.
func FromErrorWithStatus(c *gin.Context, err error, status int) {
	c.Header(ReasonHeader, appErr.Reason(err))
	for _, m := range mappings {
		if !errors.Is(err, m.err) {
			continue
		}
		message := m.message
		if detail := appErr.InvalidMessage(err); detail != "" {
			message = detail
		}
		if status == 0 {
			status = m.status
		}
		Error(c, status, m.code, message)
		return
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	Error(c, status, errcode.ErrInternal, "internal error")
}
