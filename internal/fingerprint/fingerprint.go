// Package fingerprint derives the device fingerprint bound to a session.
//
// The default policy hashes the client user agent and network address. It is a
// best-effort heuristic against session sharing and is trivially spoofable.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

type Policy interface {
	Compute(r *http.Request) string
}

type PolicyFunc func(r *http.Request) string

func (f PolicyFunc) Compute(r *http.Request) string {
	return f(r)
}

// UserAgentIPPolicy fingerprints user agent plus client address. With TrustProxy
// the first X-Forwarded-For hop or X-Real-IP is used as the address.
type UserAgentIPPolicy struct {
	TrustProxy bool
}

func (p UserAgentIPPolicy) Compute(r *http.Request) string {
	if r == nil {
		return ""
	}
	ua := strings.TrimSpace(r.UserAgent())
	ip := p.clientIP(r)
	if ua == "" && ip == "" {
		return ""
	}
	return Hash(ua + "|" + ip)
}

func (p UserAgentIPPolicy) clientIP(r *http.Request) string {
	if p.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// Static always returns the same fingerprint.
type Static string

func (s Static) Compute(*http.Request) string {
	return string(s)
}

func Hash(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// New maps the auth.fingerprint setting to a policy. "client" and "none" defer to the
// fingerprint sent by the client, anything else derives it from user agent and address.
func New(mode string, trustProxy bool) Policy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "none", "off", "client":
		return Static("")
	default:
		return UserAgentIPPolicy{TrustProxy: trustProxy}
	}
}

// Resolve prefers the policy's server side value and falls back to a client supplied
// fingerprint, hashed so raw client strings are never stored.
func Resolve(p Policy, r *http.Request, supplied string) string {
	if p != nil {
		if fp := p.Compute(r); fp != "" {
			return fp
		}
	}
	supplied = strings.TrimSpace(supplied)
	if supplied == "" {
		return ""
	}
	return Hash(supplied)
}
