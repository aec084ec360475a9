package hooks

import (
	"context"

	"github.com/user/watchwise/internal/model"
)

// Identity 当前登录身份
type Identity interface {
	CurrentUser() *model.AuthUser
}

// Watchlists 共享清单存储
type Watchlists interface {
	Create(ctx context.Context, user *model.AuthUser, input model.WatchlistInput) (*model.Watchlist, error)
	ListMine(ctx context.Context, user *model.AuthUser) ([]*model.Watchlist, error)
	GetDetails(ctx context.Context, user *model.AuthUser, id string) (*model.WatchlistDetails, error)
	AddMovie(ctx context.Context, user *model.AuthUser, watchlistID, movieID string) (*model.Watchlist, error)
	AddMember(ctx context.Context, user *model.AuthUser, watchlistID, memberID string) (*model.MemberDetail, error)
}

// WatchlistHooks 清单相关操作，身份在每次调用时读取
type WatchlistHooks struct {
	store    Watchlists
	identity Identity
	state    *State
	life     *lifetime
}

func NewWatchlistHooks(store Watchlists, identity Identity) *WatchlistHooks {
	state := &State{}
	return &WatchlistHooks{
		store:    store,
		identity: identity,
		state:    state,
		life:     newLifetime(state),
	}
}

func (h *WatchlistHooks) State() Snapshot { return h.state.Snapshot() }

func (h *WatchlistHooks) ClearError() { h.state.ClearError() }

func (h *WatchlistHooks) CreateWatchlist(ctx context.Context, input model.WatchlistInput) (*model.Watchlist, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.Watchlist, error) {
		return h.store.Create(ctx, h.identity.CurrentUser(), input)
	})
}

func (h *WatchlistHooks) GetWatchlists(ctx context.Context) ([]*model.Watchlist, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) ([]*model.Watchlist, error) {
		return h.store.ListMine(ctx, h.identity.CurrentUser())
	})
}

func (h *WatchlistHooks) GetWatchlistDetails(ctx context.Context, id string) (*model.WatchlistDetails, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.WatchlistDetails, error) {
		return h.store.GetDetails(ctx, h.identity.CurrentUser(), id)
	})
}

func (h *WatchlistHooks) AddMovieToWatchlist(ctx context.Context, watchlistID, movieID string) (*model.Watchlist, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.Watchlist, error) {
		return h.store.AddMovie(ctx, h.identity.CurrentUser(), watchlistID, movieID)
	})
}

func (h *WatchlistHooks) AddMemberToWatchlist(ctx context.Context, watchlistID, memberID string) (*model.MemberDetail, error) {
	return run(ctx, h.life, h.state, func(ctx context.Context) (*model.MemberDetail, error) {
		return h.store.AddMember(ctx, h.identity.CurrentUser(), watchlistID, memberID)
	})
}

func (h *WatchlistHooks) Teardown() { h.life.teardown() }
