package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/utils"
)

type addMovieRequest struct {
	MovieID string `json:"movieId" form:"movieId"`
}

type addMemberRequest struct {
	UserID string `json:"userId" form:"userId"`
}

// Watchlists 我的清单
func (h *Handler) Watchlists(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	lists, err := client.Watchlists.GetWatchlists(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, lists)
}

// CreateWatchlist 创建清单
func (h *Handler) CreateWatchlist(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var input model.WatchlistInput
	if err := c.ShouldBind(&input); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	w, err := client.Watchlists.CreateWatchlist(c.Request.Context(), input)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, w)
}

// Watchlist 清单详情，附带成员资料和电影详情
func (h *Handler) Watchlist(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	details, err := client.Watchlists.GetWatchlistDetails(ctx, c.Param("id"))
	if err != nil {
		utils.Fail(c, err)
		return
	}

	movies, err := client.Movies.GetWatchlistMovies(ctx, details.Movies)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	utils.Success(c, gin.H{
		"watchlist": details,
		"movies":    movies,
	})
}

// AddMovie 向清单添加电影
func (h *Handler) AddMovie(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var req addMovieRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	w, err := client.Watchlists.AddMovieToWatchlist(c.Request.Context(), c.Param("id"), req.MovieID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, w)
}

// AddMember 向清单添加成员
func (h *Handler) AddMember(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var req addMemberRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequest(c, "Invalid request body")
		return
	}

	member, err := client.Watchlists.AddMemberToWatchlist(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, member)
}
