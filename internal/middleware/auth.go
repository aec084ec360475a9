package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/service"
	"github.com/user/watchwise/internal/session"
)

const (
	// TokenCookie 保存 JWT 的 Cookie
	TokenCookie = "token"

	sessionIDKey = "sid"
	clientKey    = "client"
	readyTimeout = 5 * time.Second
)

// 登录和注册的提交也记为所在路由，成功后由状态机跳转
var authEntries = map[string]bool{"/sign-in": true, "/sign-up": true}

// ClientSession 为每个浏览器会话绑定 Client
// Client 丢失（重启或淘汰）时用 token Cookie 恢复登录状态
func ClientSession(registry *session.Registry, auth *service.AuthService) gin.HandlerFunc {
	log := logger.For("session")

	return func(c *gin.Context) {
		sess := sessions.Default(c)
		sid, _ := sess.Get(sessionIDKey).(string)
		if sid == "" {
			sid = uuid.NewString()
			sess.Set(sessionIDKey, sid)
			if err := sess.Save(); err != nil {
				log.WithError(err).Warn("failed to save session")
			}
		}

		client, _ := registry.Acquire(sid)
		ctx := c.Request.Context()

		if token := extractToken(c); token != "" && token != client.Auth.Token() {
			if _, err := client.Auth.Restore(ctx, token); err != nil {
				log.WithError(err).Debug("discarding stale token")
				ClearTokenCookie(c)
			}
		}

		// 等待身份状态就绪，避免路由守卫看到 Initializing
		waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		if err := client.Auth.Settle(waitCtx); err == nil {
			_ = client.Provider.WaitReady(waitCtx)
		}
		cancel()

		// 滑动续期逻辑：如果 Token 过期时间消耗超过一半，则刷新
		if token := client.Auth.Token(); token != "" {
			if claims, err := auth.Inspect(token); err == nil && auth.ShouldRefresh(claims) {
				if newToken, err := client.Auth.RefreshToken(); err == nil {
					SetTokenCookie(c, newToken, auth.Expiry())
				}
			}
		}

		c.Set(clientKey, client)
		if user := client.Auth.CurrentUser(); user != nil {
			c.Set("uid", user.UID)
		}
		c.Next()
	}
}

// RouteGuard 按身份状态拦截页面访问
// 已登录访问入口页跳转到 /dashboard，未登录访问受保护页跳转到 /
func RouteGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := CurrentClient(c)
		if client == nil {
			c.Next()
			return
		}

		path := c.Request.URL.Path
		if target, ok := client.Provider.Guard(path); ok {
			status := http.StatusFound
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				status = http.StatusSeeOther
			}
			client.Provider.SetLocation(target)
			c.Redirect(status, target)
			c.Abort()
			return
		}

		if c.Request.Method == http.MethodGet || authEntries[path] {
			client.Provider.SetLocation(path)
		}
		c.Next()
	}
}

// CurrentClient 当前请求的 Client
func CurrentClient(c *gin.Context) *session.Client {
	if v, exists := c.Get(clientKey); exists {
		if client, ok := v.(*session.Client); ok {
			return client
		}
	}
	return nil
}

// CurrentUser 当前登录身份（未登录返回 nil）
func CurrentUser(c *gin.Context) *model.AuthUser {
	if client := CurrentClient(c); client != nil {
		return client.Auth.CurrentUser()
	}
	return nil
}

// SetTokenCookie 写入登录令牌
func SetTokenCookie(c *gin.Context, token string, expiry time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(TokenCookie, token, int(expiry.Seconds()), "/", "", false, true)
}

// ClearTokenCookie 清除登录令牌
func ClearTokenCookie(c *gin.Context) {
	c.SetCookie(TokenCookie, "", -1, "/", "", false, true)
}

// extractToken 优先从 Cookie 获取，其次 Authorization Header
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
