package repository

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/user/watchwise/internal/model"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetProfile 根据 uid 查找资料
func (r *UserRepository) GetProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile 写入资料文档（已存在则覆盖，与文档存储 set 语义一致）
func (r *UserRepository) CreateProfile(ctx context.Context, profile *model.UserProfile) error {
	if profile.Watchlist == nil {
		profile.Watchlist = pq.StringArray{}
	}
	return r.db.WithContext(ctx).Save(profile).Error
}

// AppendWatchlistMarker 在资料的 watchlist 中追加清单 id（已存在则忽略）
func (r *UserRepository) AppendWatchlistMarker(ctx context.Context, uid, watchlistID string) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE users SET watchlist = array_append(COALESCE(watchlist, '{}'), ?)
		WHERE uid = ? AND NOT (? = ANY(COALESCE(watchlist, '{}')))
	`, watchlistID, uid, watchlistID).Error
}
