package service

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/repository"
)

const (
	// 注册后留给正常流程写入资料的时间
	reconcileGracePeriod = 2 * time.Minute
	reconcileBatchSize   = 100
)

// ReconcileService 定时为缺少资料文档的账号补建资料
type ReconcileService struct {
	credentials repository.CredentialStore
	profiles    repository.ProfileStore
	interval    time.Duration
	now         func() time.Time
	log         *logrus.Entry
}

// NewReconcileService 创建补偿任务
func NewReconcileService(credentials repository.CredentialStore, profiles repository.ProfileStore, interval time.Duration) *ReconcileService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ReconcileService{
		credentials: credentials,
		profiles:    profiles,
		interval:    interval,
		now:         time.Now,
		log:         logger.For("reconcile"),
	}
}

// Start 启动定时任务，ctx 取消时退出
func (s *ReconcileService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()

		// 启动时先运行一次
		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce 执行一轮补偿，返回补建的资料数
func (s *ReconcileService) RunOnce(ctx context.Context) int {
	orphans, err := s.credentials.ListWithoutProfile(ctx, s.now().Add(-reconcileGracePeriod), reconcileBatchSize)
	if err != nil {
		s.log.WithError(err).Error("failed to list accounts without profile")
		return 0
	}
	if len(orphans) == 0 {
		return 0
	}

	created := 0
	for _, cred := range orphans {
		profile := &model.UserProfile{
			UID:       cred.UID,
			FullName:  cred.DisplayName,
			Email:     cred.Email,
			Watchlist: pq.StringArray{},
			CreatedAt: cred.CreatedAt,
		}
		if err := s.profiles.CreateProfile(ctx, profile); err != nil {
			s.log.WithError(err).WithField("uid", cred.UID).Warn("failed to create missing profile")
			continue
		}
		created++
	}

	s.log.WithFields(logrus.Fields{"found": len(orphans), "created": created}).Info("reconciled accounts without profile")
	return created
}
