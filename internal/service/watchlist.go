package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/logger"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/repository"
)

// 条件写入冲突时的最大尝试次数
const maxWriteAttempts = 3

// WatchlistService 共享清单的读写
type WatchlistService struct {
	watchlists repository.WatchlistStore
	profiles   repository.ProfileStore
	now        func() time.Time
	newID      func() string
	log        *logrus.Entry
}

// NewWatchlistService 创建清单服务
func NewWatchlistService(watchlists repository.WatchlistStore, profiles repository.ProfileStore) *WatchlistService {
	return &WatchlistService{
		watchlists: watchlists,
		profiles:   profiles,
		now:        time.Now,
		newID:      uuid.NewString,
		log:        logger.For("watchlist"),
	}
}

// Create 创建清单，创建者总是成员
func (s *WatchlistService) Create(ctx context.Context, user *model.AuthUser, input model.WatchlistInput) (*model.Watchlist, error) {
	if user == nil {
		return nil, apperr.Auth("User must be authenticated to create a watchlist")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.Validation("Watchlist title is required")
	}

	members := make(pq.StringArray, 0, len(input.Members)+1)
	for _, m := range input.Members {
		m = strings.TrimSpace(m)
		if m != "" && !slices.Contains(members, m) {
			members = append(members, m)
		}
	}
	if !slices.Contains(members, user.UID) {
		members = append(members, user.UID)
	}

	now := s.now()
	w := &model.Watchlist{
		ID:        s.newID(),
		Title:     title,
		Members:   members,
		Movies:    pq.StringArray{},
		CreatedBy: user.UID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.watchlists.CreateWatchlist(ctx, w); err != nil {
		return nil, apperr.Internal("Failed to create watchlist", err)
	}

	for _, m := range w.Members {
		s.markMembership(ctx, m, w.ID)
	}

	return w, nil
}

// ListMine 当前用户参与的清单
func (s *WatchlistService) ListMine(ctx context.Context, user *model.AuthUser) ([]*model.Watchlist, error) {
	if user == nil {
		return nil, apperr.Auth("User must be authenticated to get watchlists")
	}

	lists, err := s.watchlists.ListByMember(ctx, user.UID)
	if err != nil {
		return nil, apperr.Internal("Failed to load watchlists", err)
	}
	if lists == nil {
		lists = []*model.Watchlist{}
	}
	return lists, nil
}

// GetDetails 清单详情，附带成员资料
func (s *WatchlistService) GetDetails(ctx context.Context, user *model.AuthUser, id string) (*model.WatchlistDetails, error) {
	if user == nil {
		return nil, apperr.Auth("User must be authenticated to get watchlist details")
	}

	w, err := s.loadForMember(ctx, user, id)
	if err != nil {
		return nil, err
	}

	return &model.WatchlistDetails{
		Watchlist:     *w,
		MemberDetails: s.memberDetails(ctx, w.Members),
	}, nil
}

// AddMovie 添加电影，重复添加返回 Duplicate
func (s *WatchlistService) AddMovie(ctx context.Context, user *model.AuthUser, watchlistID, movieID string) (*model.Watchlist, error) {
	if user == nil {
		return nil, apperr.Auth("User must be authenticated to add movies")
	}
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return nil, apperr.Validation("Movie id is required")
	}

	return s.mutate(ctx, user, watchlistID, func(w *model.Watchlist) error {
		if w.HasMovie(movieID) {
			return apperr.Duplicate("Movie already exists in this watchlist")
		}
		w.Movies = append(w.Movies, movieID)
		return nil
	})
}

// AddMember 添加成员，返回新成员的资料摘要
func (s *WatchlistService) AddMember(ctx context.Context, user *model.AuthUser, watchlistID, memberID string) (*model.MemberDetail, error) {
	if user == nil {
		return nil, apperr.Auth("User must be authenticated to add members")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, apperr.Validation("User id is required")
	}

	var profile *model.UserProfile
	_, err := s.mutate(ctx, user, watchlistID, func(w *model.Watchlist) error {
		if w.HasMember(memberID) {
			return apperr.Duplicate("User is already a member of this watchlist")
		}
		if profile == nil {
			p, err := s.profiles.GetProfile(ctx, memberID)
			if err != nil {
				return apperr.Internal("Failed to load user", err)
			}
			if p == nil {
				return apperr.NotFound("User not found")
			}
			profile = p
		}
		w.Members = append(w.Members, memberID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.markMembership(ctx, memberID, watchlistID)

	detail := profileToMember(memberID, profile)
	return &detail, nil
}

// mutate 读取-校验-条件写入，版本冲突时重新读取并重新校验
func (s *WatchlistService) mutate(ctx context.Context, user *model.AuthUser, id string, apply func(w *model.Watchlist) error) (*model.Watchlist, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		w, err := s.loadForMember(ctx, user, id)
		if err != nil {
			return nil, err
		}

		expected := w.Version
		if err := apply(w); err != nil {
			return nil, err
		}
		w.UpdatedAt = s.now()

		err = s.watchlists.UpdateIfVersion(ctx, w, expected)
		if err == nil {
			return w, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperr.Internal("Failed to update watchlist", err)
		}
		s.log.WithFields(logrus.Fields{"watchlist_id": id, "attempt": attempt}).Warn("watchlist changed concurrently, retrying")
	}
	return nil, apperr.Conflict("Watchlist was modified concurrently, please retry")
}

// loadForMember 读取清单并校验成员身份
func (s *WatchlistService) loadForMember(ctx context.Context, user *model.AuthUser, id string) (*model.Watchlist, error) {
	w, err := s.watchlists.FindWatchlist(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to load watchlist", err)
	}
	if w == nil {
		return nil, apperr.NotFound("Watchlist not found")
	}
	if !w.HasMember(user.UID) {
		return nil, apperr.Authorization("You don't have access to this watchlist")
	}
	return w, nil
}

// memberDetails 并发读取成员资料，单个失败用占位信息代替
func (s *WatchlistService) memberDetails(ctx context.Context, members []string) []model.MemberDetail {
	details := make([]model.MemberDetail, len(members))

	var wg sync.WaitGroup
	for i, id := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profile, err := s.profiles.GetProfile(ctx, id)
			if err != nil {
				s.log.WithError(err).WithField("user_id", id).Warn("failed to fetch member profile")
				details[i] = model.MemberDetail{
					ID:    id,
					Name:  model.UnavailableUserName,
					Email: model.UnavailableUserEmail,
				}
				return
			}
			details[i] = profileToMember(id, profile)
		}()
	}
	wg.Wait()

	return details
}

func (s *WatchlistService) markMembership(ctx context.Context, uid, watchlistID string) {
	if err := s.profiles.AppendWatchlistMarker(ctx, uid, watchlistID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id":      uid,
			"watchlist_id": watchlistID,
		}).Warn("failed to update profile watchlist marker")
	}
}

func profileToMember(id string, profile *model.UserProfile) model.MemberDetail {
	if profile == nil {
		return model.MemberDetail{
			ID:    id,
			Name:  model.UnknownUserName,
			Email: model.UserNotFoundEmail,
		}
	}
	d := model.MemberDetail{
		ID:    id,
		Name:  profile.FullName,
		Email: profile.Email,
	}
	if d.Name == "" {
		d.Name = model.UnknownUserName
	}
	if d.Email == "" {
		d.Email = model.NoEmailProvided
	}
	return d
}
