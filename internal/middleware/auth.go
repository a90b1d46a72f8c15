package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mcourse/internal/fingerprint"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
	"github.com/xxxsen/mcourse/internal/pkg/response"
	"github.com/xxxsen/mcourse/internal/service"
)

const (
	ContextAccountIDKey   = "account_id"
	ContextAccountKindKey = "account_kind"
	ContextPrincipalKey   = "principal"
	ContextTokenKey       = "session_token"
)

type RequestVerifier interface {
	VerifyRequest(ctx context.Context, token, requestFP string) (*service.Principal, error)
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate admits requests whose bearer token passes VerifyRequest for an account of the given kind.
func Authenticate(verifier RequestVerifier, policy fingerprint.Policy, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			response.FromError(c, appErr.ErrInvalidToken)
			c.Abort()
			return
		}
		requestFP := ""
		if policy != nil {
			requestFP = policy.Compute(c.Request)
		}
		principal, err := verifier.VerifyRequest(c.Request.Context(), token, requestFP)
		if err != nil {
			logutil.GetLogger(c.Request.Context()).Warn("request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("reason", appErr.Reason(err)),
			)
			if appErr.Reason(err) == "Internal" {
				logutil.GetLogger(c.Request.Context()).Error("verify request failed", zap.Error(err))
				response.FromError(c, err)
			} else {
				response.FromErrorWithStatus(c, err, http.StatusUnauthorized)
			}
			c.Abort()
			return
		}
		if kind != "" && principal.Kind != kind {
			response.FromError(c, appErr.ErrForbidden)
			c.Abort()
			return
		}
		c.Set(ContextAccountIDKey, principal.AccountID)
		c.Set(ContextAccountKindKey, principal.Kind)
		c.Set(ContextPrincipalKey, principal)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}
