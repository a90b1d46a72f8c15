package fingerprint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserAgentIPPolicy(t *testing.T) {
	policy := UserAgentIPPolicy{}
	r1 := httptest.NewRequest("POST", "/api/v1/user/login", nil)
	r1.RemoteAddr = "10.0.0.1:5000"
	r1.Header.Set("User-Agent", "Firefox")

	r2 := httptest.NewRequest("POST", "/api/v1/user/login", nil)
	r2.RemoteAddr = "10.0.0.1:6000"
	r2.Header.Set("User-Agent", "Firefox")

	r3 := httptest.NewRequest("POST", "/api/v1/user/login", nil)
	r3.RemoteAddr = "10.0.0.2:5000"
	r3.Header.Set("User-Agent", "Firefox")

	fp1 := policy.Compute(r1)
	require.NotEmpty(t, fp1)
	require.Equal(t, fp1, policy.Compute(r2), "source port must not change the fingerprint")
	require.NotEqual(t, fp1, policy.Compute(r3))
	require.Equal(t, Hash("Firefox|10.0.0.1"), fp1)
}

func TestUserAgentIPPolicyTrustProxy(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "127.0.0.1:80"
	r.Header.Set("User-Agent", "Chrome")
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	require.Equal(t, Hash("Chrome|127.0.0.1"), UserAgentIPPolicy{}.Compute(r))
	require.Equal(t, Hash("Chrome|203.0.113.9"), UserAgentIPPolicy{TrustProxy: true}.Compute(r))
}

func TestUserAgentIPPolicyEmpty(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = ""
	require.Equal(t, "", UserAgentIPPolicy{}.Compute(r))
	require.Equal(t, "", UserAgentIPPolicy{}.Compute(nil))
}

func TestNew(t *testing.T) {
	require.Equal(t, Static(""), New("none", false))
	require.Equal(t, UserAgentIPPolicy{TrustProxy: true}, New("ua_ip", true))
	require.Equal(t, "fixed", Static("fixed").Compute(nil))
	require.Equal(t, "x", PolicyFunc(func(_ *http.Request) string { return "x" }).Compute(nil))
}

func TestResolve(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("User-Agent", "Chrome")
	server := UserAgentIPPolicy{}.Compute(r)

	require.Equal(t, server, Resolve(UserAgentIPPolicy{}, r, "client-fp"))
	require.Equal(t, Hash("client-fp"), Resolve(New("client", false), r, " client-fp "))
	require.Equal(t, "", Resolve(New("client", false), r, ""))
	require.Equal(t, Hash("client-fp"), Resolve(nil, r, "client-fp"))
}
