package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/user/watchwise/internal/model"
	"gorm.io/gorm"
)

type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// CreateWatchlist 创建清单
func (r *WatchlistRepository) CreateWatchlist(ctx context.Context, w *model.Watchlist) error {
	if w.Movies == nil {
		w.Movies = pq.StringArray{}
	}
	return r.db.WithContext(ctx).Create(w).Error
}

// FindWatchlist 根据 id 查找清单
func (r *WatchlistRepository) FindWatchlist(ctx context.Context, id string) (*model.Watchlist, error) {
	var w model.Watchlist
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListByMember 获取用户参与的全部清单
func (r *WatchlistRepository) ListByMember(ctx context.Context, uid string) ([]*model.Watchlist, error) {
	var lists []*model.Watchlist
	err := r.db.WithContext(ctx).
		Where("? = ANY(members)", uid).
		Order("updated_at DESC").
		Find(&lists).Error
	return lists, err
}

// UpdateIfVersion 带版本号的条件更新
func (r *WatchlistRepository) UpdateIfVersion(ctx context.Context, w *model.Watchlist, expected int64) error {
	res := r.db.WithContext(ctx).Model(&model.Watchlist{}).
		Where("id = ? AND version = ?", w.ID, expected).
		Updates(map[string]interface{}{
			"members":    w.Members,
			"movies":     w.Movies,
			"updated_at": w.UpdatedAt,
			"version":    expected + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	w.Version = expected + 1
	return nil
}
