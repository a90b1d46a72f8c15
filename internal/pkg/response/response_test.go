package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mcourse/internal/pkg/errcode"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
)

type body struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func writeError(t *testing.T, err error, status int) (*httptest.ResponseRecorder, body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	FromErrorWithStatus(c, err, status)
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return rec, b
}

func TestFromErrorMapsSentinels(t *testing.T) {
	rec, b := writeError(t, fmt.Errorf("verify: %w", appErr.ErrOTPRequired), 0)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, errcode.ErrOTPRequired, b.Code)
	require.Equal(t, "OtpRequired", rec.Header().Get(ReasonHeader))

	rec, b = writeError(t, appErr.Invalidf("identifier is required"), 0)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "identifier is required", b.Message)

	rec, _ = writeError(t, appErr.ErrTooMany, 0)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestFromErrorHidesInternalDetail(t *testing.T) {
	rec, b := writeError(t, errors.New("pq: connection refused"), 0)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, errcode.ErrInternal, b.Code)
	require.Equal(t, "internal error", b.Message)
	require.Equal(t, "Internal", rec.Header().Get(ReasonHeader))
}

func TestFromErrorForcedStatus(t *testing.T) {
	rec, b := writeError(t, appErr.ErrNotFound, http.StatusUnauthorized)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, errcode.ErrNotFound, b.Code)
}
