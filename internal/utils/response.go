package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/watchwise/internal/apperr"
)

// Response 统一API响应结构
type Response struct {
	Code    int         `json:"code"`    // 状态码
	Message string      `json:"message"` // 消息
	Data    interface{} `json:"data"`    // 数据
	Success bool        `json:"success"` // 是否成功
	// Kind 错误类别，仅失败时返回
	Kind     apperr.Kind `json:"kind,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
		Success: true,
	})
}

// Created 返回201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
		Success: true,
	})
}

// SuccessWithRedirect 成功，并告知客户端需要跳转
func SuccessWithRedirect(c *gin.Context, data interface{}, redirect string) {
	c.JSON(http.StatusOK, Response{
		Code:     http.StatusOK,
		Message:  "success",
		Data:     data,
		Success:  true,
		Redirect: redirect,
	})
}

// Error 返回错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    nil,
		Success: false,
	})
}

// Fail 按错误类别返回对应状态码，并上报需要关注的错误
func Fail(c *gin.Context, err error) {
	code := apperr.HTTPStatus(err)
	_ = c.Error(err)
	apperr.Report(c.Request.Method+" "+c.FullPath(), err)

	c.JSON(code, Response{
		Code:    code,
		Message: err.Error(),
		Data:    nil,
		Success: false,
		Kind:    apperr.KindOf(err),
	})
}

// BadRequest 返回400错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}
