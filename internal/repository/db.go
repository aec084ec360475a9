package repository

import (
	"context"
	"fmt"

	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接并迁移表结构
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	logger.For("repository").Info("connected to PostgreSQL")
	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.UserProfile{}, &model.Watchlist{}, &model.Credential{}); err != nil {
		return err
	}

	// 按成员查询清单
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_watchlists_members ON watchlists USING GIN (members)`).Error
}

// NewRepositories 创建基于 PostgreSQL 的仓库集合
func NewRepositories(db *gorm.DB, revocations RevocationStore) *Repositories {
	repos := &Repositories{
		Profiles:    NewUserRepository(db),
		Watchlists:  NewWatchlistRepository(db),
		Credentials: NewCredentialRepository(db),
		Revocations: revocations,
	}
	repos.AddCloser(func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	return repos
}
