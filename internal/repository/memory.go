package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/user/watchwise/internal/model"
)

// MemoryStore 进程内存储，STORE_DRIVER=memory 时使用，重启后数据丢失
type MemoryStore struct {
	mu          sync.RWMutex
	profiles    map[string]model.UserProfile
	watchlists  map[string]model.Watchlist
	credentials map[string]model.Credential
	emails      map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:    make(map[string]model.UserProfile),
		watchlists:  make(map[string]model.Watchlist),
		credentials: make(map[string]model.Credential),
		emails:      make(map[string]string),
	}
}

// NewMemoryRepositories 创建基于内存的仓库集合
func NewMemoryRepositories(revocations RevocationStore) *Repositories {
	store := NewMemoryStore()
	return &Repositories{
		Profiles:    store,
		Watchlists:  store,
		Credentials: store,
		Revocations: revocations,
	}
}

// ==================== users ====================

func (s *MemoryStore) GetProfile(_ context.Context, uid string) (*model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil, nil
	}
	p.Watchlist = cloneArray(p.Watchlist)
	return &p, nil
}

func (s *MemoryStore) CreateProfile(_ context.Context, profile *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	p.Watchlist = cloneArray(p.Watchlist)
	s.profiles[p.UID] = p
	return nil
}

func (s *MemoryStore) AppendWatchlistMarker(_ context.Context, uid, watchlistID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok || slices.Contains(p.Watchlist, watchlistID) {
		return nil
	}
	p.Watchlist = append(cloneArray(p.Watchlist), watchlistID)
	s.profiles[uid] = p
	return nil
}

// ==================== watchlists ====================

func (s *MemoryStore) CreateWatchlist(_ context.Context, w *model.Watchlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlists[w.ID] = cloneWatchlist(*w)
	return nil
}

func (s *MemoryStore) FindWatchlist(_ context.Context, id string) (*model.Watchlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.watchlists[id]
	if !ok {
		return nil, nil
	}
	w = cloneWatchlist(w)
	return &w, nil
}

func (s *MemoryStore) ListByMember(_ context.Context, uid string) ([]*model.Watchlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lists := make([]*model.Watchlist, 0)
	for _, w := range s.watchlists {
		if slices.Contains(w.Members, uid) {
			c := cloneWatchlist(w)
			lists = append(lists, &c)
		}
	}
	sort.Slice(lists, func(i, j int) bool {
		return lists[i].UpdatedAt.After(lists[j].UpdatedAt)
	})
	return lists, nil
}

func (s *MemoryStore) UpdateIfVersion(_ context.Context, w *model.Watchlist, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.watchlists[w.ID]
	if !ok || stored.Version != expected {
		return ErrVersionConflict
	}
	stored.Members = cloneArray(w.Members)
	stored.Movies = cloneArray(w.Movies)
	stored.UpdatedAt = w.UpdatedAt
	stored.Version = expected + 1
	s.watchlists[w.ID] = stored
	w.Version = expected + 1
	return nil
}

// ==================== credentials ====================

func (s *MemoryStore) CreateCredential(_ context.Context, c *model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(c.Email)
	if _, exists := s.emails[email]; exists {
		return ErrDuplicateEmail
	}
	cred := *c
	cred.Email = email
	s.credentials[cred.UID] = cred
	s.emails[email] = cred.UID
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	c := s.credentials[uid]
	return &c, nil
}

func (s *MemoryStore) ListWithoutProfile(_ context.Context, before time.Time, limit int) ([]*model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Credential
	for uid, c := range s.credentials {
		if _, ok := s.profiles[uid]; ok || !c.CreatedAt.Before(before) {
			continue
		}
		cred := c
		out = append(out, &cred)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneWatchlist(w model.Watchlist) model.Watchlist {
	w.Members = cloneArray(w.Members)
	w.Movies = cloneArray(w.Movies)
	return w
}

func cloneArray(a pq.StringArray) pq.StringArray {
	if a == nil {
		return pq.StringArray{}
	}
	return slices.Clone(a)
}
