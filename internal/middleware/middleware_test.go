package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mcourse/internal/fingerprint"
	"github.com/xxxsen/mcourse/internal/metrics"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
	"github.com/xxxsen/mcourse/internal/pkg/response"
	"github.com/xxxsen/mcourse/internal/service"
)

type fakeVerifier struct {
	principal *service.Principal
	err       error
	gotToken  string
	gotFP     string
}

func (f *fakeVerifier) VerifyRequest(_ context.Context, token, requestFP string) (*service.Principal, error) {
	f.gotToken, f.gotFP = token, requestFP
	return f.principal, f.err
}

func newAuthRouter(v RequestVerifier, kind string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Authenticate(v, fingerprint.Static("fp-req"), kind), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextAccountIDKey))
	})
	return r
}

func doGet(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateAttachesAccount(t *testing.T) {
	v := &fakeVerifier{principal: &service.Principal{AccountID: "acc-1", Kind: "admin"}}
	rec := doGet(newAuthRouter(v, "admin"), "Bearer tok")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "acc-1", rec.Body.String())
	require.Equal(t, "tok", v.gotToken)
	require.Equal(t, "fp-req", v.gotFP)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	v := &fakeVerifier{}
	for _, h := range []string{"", "Basic abc", "Bearer ", "tok"} {
		rec := doGet(newAuthRouter(v, ""), h)
		require.Equal(t, http.StatusUnauthorized, rec.Code, h)
		require.Equal(t, "InvalidToken", rec.Header().Get(response.ReasonHeader))
	}
}

func TestAuthenticateReportsReason(t *testing.T) {
	cases := map[error]string{
		appErr.ErrOTPRequired:    "OtpRequired",
		appErr.ErrReauthRequired: "ReauthRequired",
		appErr.ErrDeviceMismatch: "DeviceMismatch",
		appErr.ErrInvalidToken:   "InvalidToken",
		appErr.ErrNotFound:       "NotFound",
	}
	for err, reason := range cases {
		rec := doGet(newAuthRouter(&fakeVerifier{err: err}, ""), "Bearer tok")
		require.Equal(t, http.StatusUnauthorized, rec.Code, reason)
		require.Equal(t, reason, rec.Header().Get(response.ReasonHeader))
	}
	rec := doGet(newAuthRouter(&fakeVerifier{err: fmt.Errorf("db down")}, ""), "Bearer tok")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthenticateRejectsOtherKind(t *testing.T) {
	v := &fakeVerifier{principal: &service.Principal{AccountID: "acc-2", Kind: "user"}}
	rec := doGet(newAuthRouter(v, "admin"), "Bearer tok")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Body.String())
	require.Equal(t, "abc", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Len(t, rec.Body.String(), 36)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), response.ReasonHeader)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/counted", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	counter := metrics.HTTPRequestTotal.WithLabelValues(http.MethodGet, "/counted", "418")
	before := testutil.ToFloat64(counter)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/counted", nil))
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}
