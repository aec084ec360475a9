package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/watchwise/internal/config"
	"github.com/user/watchwise/internal/middleware"
	"github.com/user/watchwise/internal/service"
	"github.com/user/watchwise/internal/session"
	"github.com/user/watchwise/internal/utils"
)

// 等待身份状态通知送达的最长时间
const settleTimeout = 5 * time.Second

// Handler HTTP 处理器
type Handler struct {
	Config *config.Config
	Auth   *service.AuthService
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, auth *service.AuthService) *Handler {
	return &Handler{
		Config: cfg,
		Auth:   auth,
	}
}

// client 当前请求的 Client，不存在时直接返回 500
func (h *Handler) client(c *gin.Context) (*session.Client, bool) {
	client := middleware.CurrentClient(c)
	if client == nil {
		utils.Error(c, http.StatusInternalServerError, "Session unavailable")
		return nil, false
	}
	return client, true
}

// settle 等待身份变化传递到状态机，并取出它产生的跳转
func (h *Handler) settle(c *gin.Context, client *session.Client) string {
	ctx, cancel := context.WithTimeout(c.Request.Context(), settleTimeout)
	defer cancel()
	_ = client.Auth.Settle(ctx)
	return client.Navigation.Take()
}
