package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/utils"
)

// Session 当前会话状态：身份、资料、待处理跳转和各钩子的 loading/error
func (h *Handler) Session(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	utils.Success(c, gin.H{
		"state":    client.Provider.State(),
		"loading":  client.Provider.Loading(),
		"user":     client.Provider.User(),
		"profile":  client.Provider.Profile(),
		"location": client.Provider.Location(),
		"redirect": client.Navigation.Take(),
		"hooks": gin.H{
			"movies":          client.Movies.State(),
			"recommendations": client.Movies.RecommendationState(),
			"watchlists":      client.Watchlists.State(),
			"auth":            client.Account.State(),
		},
	})
}

// RefreshProfile 重新读取资料，未登录时返回 null
func (h *Handler) RefreshProfile(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	profile, err := client.Provider.RefreshProfile(c.Request.Context())
	if err != nil {
		utils.Fail(c, apperr.Internal("Failed to load profile", err))
		return
	}
	utils.Success(c, profile)
}

// ClearErrors 清空所有钩子的错误
func (h *Handler) ClearErrors(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	client.Movies.ClearError()
	client.Watchlists.ClearError()
	client.Account.ClearError()
	utils.Success(c, nil)
}
