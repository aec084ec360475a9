package hooks

import (
	"context"

	"github.com/user/watchwise/internal/model"
)

// Catalog 电影目录
type Catalog interface {
	GetPopularMovies(ctx context.Context) ([]model.Movie, error)
	SearchMovies(ctx context.Context, query string, page int) (*model.MoviePage, error)
	GetMoviesByGenre(ctx context.Context, genres []int, page int) (*model.MoviePage, error)
	GetMovieDetails(ctx context.Context, id int) (*model.Movie, error)
	GetWatchProviders(ctx context.Context, id int) (*model.WatchProviders, error)
	GetRecommendedMovies(ctx context.Context, id int) ([]model.Movie, error)
	GetWatchlistMovies(ctx context.Context, movieIDs []string) []model.Movie
}

// MovieHooks 电影相关操作
// 推荐使用独立的状态，详情页可以同时加载两者
type MovieHooks struct {
	catalog         Catalog
	state           *State
	recommendations *State
	life            *lifetime
}

func NewMovieHooks(catalog Catalog) *MovieHooks {
	state, rec := &State{}, &State{}
	return &MovieHooks{
		catalog:         catalog,
		state:           state,
		recommendations: rec,
		life:            newLifetime(state, rec),
	}
}

func (h *MovieHooks) State() Snapshot { return h.state.Snapshot() }

func (h *MovieHooks) RecommendationState() Snapshot { return h.recommendations.Snapshot() }

func (h *MovieHooks) ClearError() {
	h.state.ClearError()
	h.recommendations.ClearError()
}

func (h *MovieHooks) GetPopularMovies(ctx context.Context) ([]model.Movie, error) {
	return run(ctx, h.life, h.state, h.catalog.GetPopularMovies)
}

func (h *MovieHooks) SearchMovies(ctx context.Context, query string, page int) (*model.MoviePage, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.MoviePage, error) {
		return h.catalog.SearchMovies(ctx, query, page)
	})
}

func (h *MovieHooks) GetMoviesByGenre(ctx context.Context, genres []int, page int) (*model.MoviePage, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.MoviePage, error) {
		return h.catalog.GetMoviesByGenre(ctx, genres, page)
	})
}

func (h *MovieHooks) GetMovieDetails(ctx context.Context, id int) (*model.Movie, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.Movie, error) {
		return h.catalog.GetMovieDetails(ctx, id)
	})
}

func (h *MovieHooks) GetWatchProviders(ctx context.Context, id int) (*model.WatchProviders, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.WatchProviders, error) {
		return h.catalog.GetWatchProviders(ctx, id)
	})
}

// GetWatchlistMovies 单个电影失败不会报错
func (h *MovieHooks) GetWatchlistMovies(ctx context.Context, movieIDs []string) ([]model.Movie, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) ([]model.Movie, error) {
		return h.catalog.GetWatchlistMovies(ctx, movieIDs), nil
	})
}

func (h *MovieHooks) GetMovieRecommendations(ctx context.Context, id int) ([]model.Movie, error) {
	return run(ctx, h.life, h.recommendations, func(ctx context.Context) ([]model.Movie, error) {
		return h.catalog.GetRecommendedMovies(ctx, id)
	})
}

// Teardown 取消进行中的调用，之后到达的结果不再写回状态
func (h *MovieHooks) Teardown() { h.life.teardown() }
