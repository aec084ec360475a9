package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/middleware"
	"github.com/user/watchwise/internal/utils"
)

type signUpRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	FullName string `json:"fullName" form:"fullName"`
}

type signInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// SignUpPage 注册页
func (h *Handler) SignUpPage(c *gin.Context) {
	utils.Success(c, gin.H{"siteName": h.Config.SiteName, "page": "sign-up"})
}

// SignInPage 登录页
func (h *Handler) SignInPage(c *gin.Context) {
	utils.Success(c, gin.H{"siteName": h.Config.SiteName, "page": "sign-in"})
}

// SignUp 注册处理
func (h *Handler) SignUp(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var req signUpRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	user, err := client.Account.SignUp(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		// 资料写入失败时账号已创建并处于登录状态
		if errors.Is(err, apperr.ErrPartialSignUp) {
			if token := client.Auth.Token(); token != "" {
				middleware.SetTokenCookie(c, token, h.Auth.Expiry())
			}
			h.settle(c, client)
		}
		utils.Fail(c, err)
		return
	}

	middleware.SetTokenCookie(c, client.Auth.Token(), h.Auth.Expiry())
	redirect := h.settle(c, client)
	// 状态机可能在资料写入前就读取过资料
	if _, err := client.Provider.RefreshProfile(c.Request.Context()); err != nil {
		_ = c.Error(err)
	}
	utils.SuccessWithRedirect(c, user, redirect)
}

// SignIn 登录处理
func (h *Handler) SignIn(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var req signInRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	user, err := client.Account.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	middleware.SetTokenCookie(c, client.Auth.Token(), h.Auth.Expiry())
	utils.SuccessWithRedirect(c, user, h.settle(c, client))
}

// SignOut 登出
func (h *Handler) SignOut(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	if err := client.Account.SignOut(c.Request.Context()); err != nil {
		utils.Fail(c, err)
		return
	}

	middleware.ClearTokenCookie(c)
	utils.SuccessWithRedirect(c, nil, h.settle(c, client))
}
