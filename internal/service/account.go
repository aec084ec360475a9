package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/repository"
)

// AccountService 注册/登录/登出，负责身份与资料文档的衔接
type AccountService struct {
	profiles repository.ProfileStore
	now      func() time.Time
	log      *logrus.Entry
}

// NewAccountService 创建账号服务
func NewAccountService(profiles repository.ProfileStore) *AccountService {
	return &AccountService{
		profiles: profiles,
		now:      time.Now,
		log:      logger.For("account"),
	}
}

// SignUp 创建身份后写入资料文档
// 资料写入失败时身份保留，由 ReconcileService 补建资料
func (s *AccountService) SignUp(ctx context.Context, handle *AuthHandle, email, password, fullName string) (*model.SignedInUser, error) {
	fullName = strings.TrimSpace(fullName)

	user, err := handle.SignUp(ctx, email, password, fullName)
	if err != nil {
		return nil, passThrough(err)
	}

	profile := &model.UserProfile{
		UID:       user.UID,
		FullName:  fullName,
		Email:     user.Email,
		Watchlist: pq.StringArray{},
		CreatedAt: s.now(),
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		s.log.WithError(err).WithField("uid", user.UID).Error("profile creation failed after sign-up")
		return nil, apperr.PartialSignUp("Account created but profile setup failed", err)
	}

	return &model.SignedInUser{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: fullName,
		Watchlist:   []string{},
	}, nil
}

// SignIn 登录后读取资料，资料不存在时按空资料处理
func (s *AccountService) SignIn(ctx context.Context, handle *AuthHandle, email, password string) (*model.SignedInUser, error) {
	user, err := handle.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			return nil, apperr.Auth("Invalid email or password")
		}
		return nil, passThrough(err)
	}

	profile, err := s.profiles.GetProfile(ctx, user.UID)
	if err != nil {
		return nil, apperr.Internal(err.Error(), err)
	}
	if profile == nil {
		profile = &model.UserProfile{}
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = profile.FullName
	}
	watchlist := []string(profile.Watchlist)
	if watchlist == nil {
		watchlist = []string{}
	}

	return &model.SignedInUser{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: displayName,
		Watchlist:   watchlist,
	}, nil
}

// SignOut 登出
func (s *AccountService) SignOut(ctx context.Context, handle *AuthHandle) error {
	if err := handle.SignOut(ctx); err != nil {
		s.log.WithError(err).Warn("sign out failed")
		return apperr.Internal("Failed to sign out", err)
	}
	return nil
}

// passThrough 应用错误原样返回，其余错误保留原始消息
func passThrough(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(err.Error(), err)
}
