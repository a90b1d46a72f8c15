package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mcourse/internal/model"
	"github.com/xxxsen/mcourse/internal/pkg/response"
	"github.com/xxxsen/mcourse/internal/service"
)

type AccountHandler struct {
	kind     string
	accounts *service.AccountService
}

func NewAccountHandler(kind string, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{kind: kind, accounts: accounts}
}

type registerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type profileRequest struct {
	Name string `json:"name"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	summary, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Kind:     h.kind,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.PhoneNumber,
		Password: req.Password,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"account": summary})
}

func (h *AccountHandler) Me(c *gin.Context) {
	account, err := h.accounts.Profile(c.Request.Context(), getAccountID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"account": account})
}

func (h *AccountHandler) UpdateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	account, err := h.accounts.UpdateProfile(c.Request.Context(), getAccountID(c), req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"account": account})
}

func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), getAccountID(c), req.CurrentPassword, req.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed, login again"})
}

// ListUsers pages through end user accounts: ?search=&page=&limit=&sortBy=&order=.
func (h *AccountHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.ParseUint(c.Query("page"), 10, 32)
	limit, _ := strconv.ParseUint(c.Query("limit"), 10, 32)
	result, err := h.accounts.List(c.Request.Context(), model.AccountListQuery{
		Kind:   model.AccountKindUser,
		Search: c.Query("search"),
		Page:   uint(page),
		Limit:  uint(limit),
		SortBy: c.Query("sortBy"),
		Order:  c.Query("order"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *AccountHandler) SetUserActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		badRequest(c)
		return
	}
	if err := h.accounts.SetActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "active": *req.Active})
}
