package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mcourse/internal/fingerprint"
	"github.com/xxxsen/mcourse/internal/middleware"
	"github.com/xxxsen/mcourse/internal/model"
)

type RouterDeps struct {
	AdminAuth       *AuthHandler
	UserAuth        *AuthHandler
	AdminAccounts   *AccountHandler
	UserAccounts    *AccountHandler
	Health          *HealthHandler
	Verifier        middleware.RequestVerifier
	Fingerprint     fingerprint.Policy
	RateLimitWindow time.Duration
	RateLimitBurst  int
	Metrics         http.Handler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", deps.Health.Get)
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	limit := middleware.RateLimit(deps.RateLimitWindow, deps.RateLimitBurst)

	admin := api.Group("/admin")
	registerAuthRoutes(admin, deps.AdminAuth, limit)
	adminAuthed := admin.Group("")
	adminAuthed.Use(middleware.Authenticate(deps.Verifier, deps.Fingerprint, model.AccountKindAdmin))
	adminAuthed.POST("/register", deps.AdminAccounts.Register)
	adminAuthed.GET("/me", deps.AdminAccounts.Me)
	adminAuthed.PUT("/me", deps.AdminAccounts.UpdateMe)
	adminAuthed.POST("/change-password", deps.AdminAccounts.ChangePassword)
	adminAuthed.GET("/users", deps.AdminAccounts.ListUsers)
	adminAuthed.PUT("/users/:id/active", deps.AdminAccounts.SetUserActive)

	user := api.Group("/user")
	registerAuthRoutes(user, deps.UserAuth, limit)
	user.POST("/register", limit, deps.UserAccounts.Register)
	userAuthed := user.Group("")
	userAuthed.Use(middleware.Authenticate(deps.Verifier, deps.Fingerprint, model.AccountKindUser))
	userAuthed.GET("/me", deps.UserAccounts.Me)
	userAuthed.PUT("/me", deps.UserAccounts.UpdateMe)
}

func registerAuthRoutes(g *gin.RouterGroup, h *AuthHandler, limit gin.HandlerFunc) {
	g.POST("/login", limit, h.Login)
	g.POST("/verify-otp", limit, h.VerifyOTP)
	g.POST("/resend-otp", limit, h.ResendOTP)
	g.GET("/logout", h.Logout)
}
