package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mcourse/internal/middleware"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
	"github.com/xxxsen/mcourse/internal/pkg/response"
)

func getAccountID(c *gin.Context) string {
	return c.GetString(middleware.ContextAccountIDKey)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	reason := appErr.Reason(err)
	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("account_id", getAccountID(c)),
		zap.String("reason", reason),
	}
	logger := logutil.GetLogger(c.Request.Context())
	if reason == "Internal" {
		logger.Error("request failed", append(fields, zap.Error(err))...)
	} else {
		logger.Warn("request rejected", fields...)
	}
	response.FromError(c, err)
}

func badRequest(c *gin.Context) {
	handleError(c, appErr.Invalidf("invalid request"))
}
