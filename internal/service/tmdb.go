package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/config"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultTMDBBaseURL = "https://api.themoviedb.org/3"
	// 批量拉取详情时的最大并发数
	batchConcurrency = 8
	// 合并后的详情请求独立于调用方的超时
	detailFetchTimeout = 30 * time.Second
	detailCacheSize    = 1000
	detailCacheTTL     = 10 * time.Minute
)

// TMDBService 电影目录客户端
type TMDBService struct {
	client   *utils.HTTPClient
	baseURL  string
	region   string
	language string
	group    singleflight.Group
	details  *utils.TTLCache[model.Movie]
	log      *logrus.Entry
}

// NewTMDBService 创建目录客户端
func NewTMDBService(cfg *config.Config) *TMDBService {
	var limiter *rate.Limiter
	if cfg.TMDBRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.TMDBRateLimit), int(cfg.TMDBRateLimit)+1)
	}

	client := utils.NewHTTPClient(30*time.Second, limiter)
	client.SetHeader("accept", "application/json")
	client.SetHeader("Authorization", "Bearer "+cfg.TMDBToken)

	baseURL := strings.TrimRight(cfg.TMDBBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTMDBBaseURL
	}

	return &TMDBService{
		client:   client,
		baseURL:  baseURL,
		region:   cfg.TMDBRegion,
		language: cfg.TMDBLanguage,
		details:  utils.NewTTLCache[model.Movie](detailCacheSize),
		log:      logger.For("tmdb"),
	}
}

// Region 默认观看地区
func (s *TMDBService) Region() string {
	return s.region
}

type tmdbListResponse struct {
	Results []model.Movie `json:"results"`
}

type tmdbErrorResponse struct {
	StatusMessage string `json:"status_message"`
}

// GetPopularMovies 热门电影（第一页）
func (s *TMDBService) GetPopularMovies(ctx context.Context) ([]model.Movie, error) {
	q := url.Values{}
	q.Set("language", s.language)
	q.Set("page", "1")

	var result tmdbListResponse
	if err := s.get(ctx, "/movie/popular", q, &result); err != nil {
		return nil, err
	}
	return nonNilMovies(result.Results), nil
}

// SearchMovies 按标题搜索，query 不能为空
func (s *TMDBService) SearchMovies(ctx context.Context, query string, page int) (*model.MoviePage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("Search query is required")
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("include_adult", "false")
	q.Set("language", "en-US")
	q.Set("page", strconv.Itoa(page))

	var result model.MoviePage
	if err := s.get(ctx, "/search/movie", q, &result); err != nil {
		return nil, err
	}
	result.Results = nonNilMovies(result.Results)
	return &result, nil
}

// GetMoviesByGenre 按类型发现电影，按热度降序
func (s *TMDBService) GetMoviesByGenre(ctx context.Context, genres []int, page int) (*model.MoviePage, error) {
	if page < 1 {
		page = 1
	}
	ids := make([]string, 0, len(genres))
	for _, g := range genres {
		ids = append(ids, strconv.Itoa(g))
	}

	q := url.Values{}
	q.Set("region", s.region)
	q.Set("include_adult", "false")
	q.Set("include_video", "false")
	q.Set("language", s.language)
	q.Set("page", strconv.Itoa(page))
	q.Set("sort_by", "popularity.desc")
	q.Set("with_genres", strings.Join(ids, ","))

	var result model.MoviePage
	if err := s.get(ctx, "/discover/movie", q, &result); err != nil {
		return nil, err
	}
	result.Results = nonNilMovies(result.Results)
	return &result, nil
}

// GetMovieDetails 电影详情
// 相同 id 的并发请求合并为一次；共享请求不受单个调用方取消的影响，调用方各自按 ctx 等待
// 成功结果在 LRU 中缓存 detailCacheTTL
func (s *TMDBService) GetMovieDetails(ctx context.Context, id int) (*model.Movie, error) {
	key := "movie:" + strconv.Itoa(id)
	if movie, ok := s.details.Get(key); ok {
		return &movie, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detailFetchTimeout)
		defer cancel()

		q := url.Values{}
		q.Set("language", "en-US")

		var movie model.Movie
		if err := s.get(fetchCtx, fmt.Sprintf("/movie/%d", id), q, &movie); err != nil {
			return nil, err
		}
		s.details.Set(key, movie, detailCacheTTL)
		return &movie, nil
	})

	select {
	case <-ctx.Done():
		return nil, apperr.API(ctx.Err().Error(), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		movie := *res.Val.(*model.Movie)
		return &movie, nil
	}
}

// GetWatchProviders 观看平台
func (s *TMDBService) GetWatchProviders(ctx context.Context, id int) (*model.WatchProviders, error) {
	var result model.WatchProviders
	if err := s.get(ctx, fmt.Sprintf("/movie/%d/watch/providers", id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRecommendedMovies 相似推荐
func (s *TMDBService) GetRecommendedMovies(ctx context.Context, id int) ([]model.Movie, error) {
	q := url.Values{}
	q.Set("language", "en-US")
	q.Set("page", "1")

	var result tmdbListResponse
	if err := s.get(ctx, fmt.Sprintf("/movie/%d/recommendations", id), q, &result); err != nil {
		return nil, err
	}
	return nonNilMovies(result.Results), nil
}

// GetWatchlistMovies 并发拉取一组电影详情
// 单个失败只记录日志并跳过，结果按输入顺序排列，从不返回错误
func (s *TMDBService) GetWatchlistMovies(ctx context.Context, movieIDs []string) []model.Movie {
	if len(movieIDs) == 0 {
		return []model.Movie{}
	}

	resolved := make([]*model.Movie, len(movieIDs))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, raw := range movieIDs {
		g.Go(func() error {
			id, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				s.log.WithField("movie_id", raw).Warn("skipping invalid movie id")
				return nil
			}
			movie, err := s.GetMovieDetails(ctx, id)
			if err != nil {
				s.log.WithError(err).WithField("movie_id", id).Warn("failed to fetch movie details")
				return nil
			}
			resolved[i] = movie
			return nil
		})
	}
	_ = g.Wait()

	movies := make([]model.Movie, 0, len(movieIDs))
	for _, m := range resolved {
		if m != nil {
			movies = append(movies, *m)
		}
	}
	return movies
}

func (s *TMDBService) get(ctx context.Context, path string, query url.Values, target interface{}) error {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	s.log.WithField("path", path).Debug("tmdb request")
	if err := s.client.GetJSON(ctx, endpoint, target); err != nil {
		return toAPIError(err)
	}
	return nil
}

// toAPIError 上游错误统一转换为 API 错误，优先使用 TMDB 的 status_message
func toAPIError(err error) error {
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		var body tmdbErrorResponse
		if json.Unmarshal(statusErr.Body, &body) == nil && body.StatusMessage != "" {
			return apperr.API(body.StatusMessage, err)
		}
		text := http.StatusText(statusErr.StatusCode)
		if text == "" {
			text = statusErr.Error()
		}
		return apperr.API(text, err)
	}
	return apperr.API(err.Error(), err)
}

func nonNilMovies(movies []model.Movie) []model.Movie {
	if movies == nil {
		return []model.Movie{}
	}
	return movies
}
