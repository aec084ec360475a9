package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/watchwise/internal/model"
)

var (
	// ErrVersionConflict 条件写入时版本号已变化
	ErrVersionConflict = errors.New("watchlist version changed since read")
	// ErrDuplicateEmail 邮箱已被注册
	ErrDuplicateEmail = errors.New("email already registered")
)

// ProfileStore users 集合
// 读取不存在的文档返回 nil, nil
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*model.UserProfile, error)
	CreateProfile(ctx context.Context, profile *model.UserProfile) error
	AppendWatchlistMarker(ctx context.Context, uid, watchlistID string) error
}

// WatchlistStore watchlists 集合
type WatchlistStore interface {
	CreateWatchlist(ctx context.Context, w *model.Watchlist) error
	FindWatchlist(ctx context.Context, id string) (*model.Watchlist, error)
	ListByMember(ctx context.Context, uid string) ([]*model.Watchlist, error)
	// UpdateIfVersion 仅当存储中的版本仍为 expected 时写入 members/movies/updatedAt，
	// 成功后 w.Version 为新版本；否则返回 ErrVersionConflict
	UpdateIfVersion(ctx context.Context, w *model.Watchlist, expected int64) error
}

// CredentialStore 身份服务的账号存储
type CredentialStore interface {
	CreateCredential(ctx context.Context, c *model.Credential) error
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	// ListWithoutProfile 创建时间早于 before 且没有资料文档的账号
	ListWithoutProfile(ctx context.Context, before time.Time, limit int) ([]*model.Credential, error)
}

// RevocationStore 已吊销的令牌 id，保留到令牌过期
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Repositories 仓库集合
type Repositories struct {
	Profiles    ProfileStore
	Watchlists  WatchlistStore
	Credentials CredentialStore
	Revocations RevocationStore

	closers []func(context.Context) error
}

// Close 关闭底层连接
func (r *Repositories) Close(ctx context.Context) error {
	var errs []error
	for _, c := range r.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AddCloser 注册关闭回调
func (r *Repositories) AddCloser(fn func(context.Context) error) {
	r.closers = append(r.closers, fn)
}
