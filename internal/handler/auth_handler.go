package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mcourse/internal/fingerprint"
	"github.com/xxxsen/mcourse/internal/middleware"
	appErr "github.com/xxxsen/mcourse/internal/pkg/errors"
	"github.com/xxxsen/mcourse/internal/pkg/response"
	"github.com/xxxsen/mcourse/internal/service"
)

// AuthHandler serves the login flow for one account kind; admin and user routes get one each.
type AuthHandler struct {
	kind   string
	auth   *service.AuthService
	policy fingerprint.Policy
}

func NewAuthHandler(kind string, auth *service.AuthService, policy fingerprint.Policy) *AuthHandler {
	return &AuthHandler{kind: kind, auth: auth, policy: policy}
}

type loginRequest struct {
	Identifier        string `json:"identifier"`
	Credential        string `json:"credential"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

type challengeResponse struct {
	VerificationToken string `json:"verificationToken"`
	OTPRequired       bool   `json:"otpRequired"`
	OTP               string `json:"otp,omitempty"`
}

type verifyOTPRequest struct {
	OTP               string `json:"otp"`
	VerificationToken string `json:"verificationToken"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

type resendOTPRequest struct {
	VerificationToken string `json:"verificationToken"`
}

type resendOTPResponse struct {
	Message string `json:"message"`
	OTP     string `json:"otp,omitempty"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Kind:        h.kind,
		Identifier:  req.Identifier,
		Credential:  req.Credential,
		Fingerprint: fingerprint.Resolve(h.policy, c.Request, req.DeviceFingerprint),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	if res.OTPRequired {
		response.Success(c, challengeResponse{
			VerificationToken: res.VerificationToken,
			OTPRequired:       true,
			OTP:               res.OTP,
		})
		return
	}
	response.Success(c, res.Auth)
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := h.auth.VerifyOTP(c.Request.Context(), h.kind, req.VerificationToken, req.OTP,
		fingerprint.Resolve(h.policy, c.Request, req.DeviceFingerprint))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	res, err := h.auth.ResendOTP(c.Request.Context(), h.kind, req.VerificationToken)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resendOTPResponse{Message: "otp sent", OTP: res.OTP})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		handleError(c, appErr.ErrInvalidToken)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), h.kind, token); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out"})
}
