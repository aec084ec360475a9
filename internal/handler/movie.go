package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/utils"
)

// ==================== 公开页面 ====================

// Home 首页：热门电影
func (h *Handler) Home(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	movies, err := client.Movies.GetPopularMovies(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}

	utils.Success(c, gin.H{
		"siteName": h.Config.SiteName,
		"movies":   movies,
	})
}

// Dashboard 登录后首页：热门电影、类型目录与个人资料
func (h *Handler) Dashboard(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	movies, err := client.Movies.GetPopularMovies(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}

	utils.Success(c, gin.H{
		"user":    client.Provider.User(),
		"profile": client.Provider.Profile(),
		"movies":  movies,
		"genres":  model.Genres,
	})
}

// Search 搜索结果页，q 为空时不请求目录直接返回空结果
func (h *Handler) Search(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	page := queryPage(c)

	if query == "" {
		utils.Success(c, gin.H{
			"query":         "",
			"page":          page,
			"results":       []model.Movie{},
			"total_pages":   0,
			"total_results": 0,
		})
		return
	}

	result, err := client.Movies.SearchMovies(c.Request.Context(), query, page)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	utils.Success(c, gin.H{
		"query":         query,
		"page":          page,
		"results":       result.Results,
		"total_pages":   result.TotalPages,
		"total_results": result.TotalResults,
	})
}

// Genres 类型目录
func (h *Handler) Genres(c *gin.Context) {
	utils.Success(c, model.Genres)
}

// GenreMovies 按类型浏览，id 可以是逗号分隔的多个类型
func (h *Handler) GenreMovies(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}

	var ids []int
	for _, part := range strings.Split(c.Param("id"), ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			utils.Fail(c, apperr.Validation("Invalid genre id"))
			return
		}
		ids = append(ids, id)
	}

	// 单个类型时附带标题信息，未知类型返回 404
	var info *model.GenreInfo
	if len(ids) == 1 {
		g, found := model.FindGenre(ids[0])
		if !found {
			utils.Fail(c, apperr.NotFound("Genre not found"))
			return
		}
		info = &g
	}

	page := queryPage(c)
	result, err := client.Movies.GetMoviesByGenre(c.Request.Context(), ids, page)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	utils.Success(c, gin.H{
		"genre":         info,
		"page":          page,
		"results":       result.Results,
		"total_pages":   result.TotalPages,
		"total_results": result.TotalResults,
	})
}

// Movie 电影详情
func (h *Handler) Movie(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	id, ok := movieID(c)
	if !ok {
		return
	}

	movie, err := client.Movies.GetMovieDetails(c.Request.Context(), id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, movie)
}

// MovieProviders 观看平台，region 默认取配置
func (h *Handler) MovieProviders(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	id, ok := movieID(c)
	if !ok {
		return
	}

	region := strings.ToUpper(c.DefaultQuery("region", h.Config.TMDBRegion))

	providers, err := client.Movies.GetWatchProviders(c.Request.Context(), id)
	if err != nil {
		utils.Fail(c, err)
		return
	}

	regional := providers.ForRegion(region)
	utils.Success(c, gin.H{
		"region":    region,
		"available": !regional.Empty(),
		"providers": regional,
	})
}

// MovieRecommendations 相似推荐
func (h *Handler) MovieRecommendations(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	id, ok := movieID(c)
	if !ok {
		return
	}

	movies, err := client.Movies.GetMovieRecommendations(c.Request.Context(), id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, movies)
}

func movieID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.Fail(c, apperr.Validation("Invalid movie id"))
		return 0, false
	}
	return id, true
}

// queryPage 页码至少为 1
func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
