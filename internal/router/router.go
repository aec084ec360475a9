package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/watchwise/internal/handler"
	"github.com/user/watchwise/internal/middleware"
	"github.com/user/watchwise/internal/session"
	"golang.org/x/time/rate"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler, registry *session.Registry, authLimiter *rate.Limiter) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	app := r.Group("")
	app.Use(middleware.ClientSession(registry, h.Auth))

	// ==================== 会话状态 ====================
	app.GET("/session", h.Session)
	app.POST("/session/refresh", h.RefreshProfile)
	app.POST("/session/clear-errors", h.ClearErrors)

	// ==================== 页面（带路由守卫）====================
	pages := app.Group("")
	pages.Use(middleware.RouteGuard())
	{
		pages.GET("/", h.Home)
		pages.GET("/sign-in", h.SignInPage)
		pages.GET("/sign-up", h.SignUpPage)
		pages.GET("/search", h.Search)
		pages.GET("/genres", h.Genres)
		pages.GET("/genres/:id", h.GenreMovies)
		pages.GET("/movie/:id", h.Movie)
		pages.GET("/movie/:id/providers", h.MovieProviders)
		pages.GET("/movie/:id/recommendations", h.MovieRecommendations)
		pages.POST("/sign-out", h.SignOut)
	}

	// ==================== 认证 ====================
	auth := pages.Group("")
	auth.Use(middleware.RateLimit(authLimiter))
	{
		auth.POST("/sign-up", h.SignUp)
		auth.POST("/sign-in", h.SignIn)
	}

	// ==================== 需要登录 ====================
	pages.GET("/dashboard", h.Dashboard)

	watchlist := pages.Group("/watchlist")
	{
		watchlist.GET("", h.Watchlists)
		watchlist.POST("", h.CreateWatchlist)
		watchlist.GET("/:id", h.Watchlist)
		watchlist.POST("/:id/movies", h.AddMovie)
		watchlist.POST("/:id/members", h.AddMember)
	}
}
