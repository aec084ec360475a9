package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/watchwise/internal/apperr"
	"github.com/user/watchwise/internal/model"
	"github.com/user/watchwise/internal/repository"
)

var (
	alice = &model.AuthUser{UID: "alice", Email: "alice@example.com"}
	bob   = &model.AuthUser{UID: "bob", Email: "bob@example.com"}
	carol = &model.AuthUser{UID: "carol", Email: "carol@example.com"}
)

// flakyWatchlists 前 conflicts 次条件写入返回版本冲突
type flakyWatchlists struct {
	*repository.MemoryStore
	conflicts int32
	writes    int32
}

func (f *flakyWatchlists) CreateWatchlist(ctx context.Context, w *model.Watchlist) error {
	atomic.AddInt32(&f.writes, 1)
	return f.MemoryStore.CreateWatchlist(ctx, w)
}

func (f *flakyWatchlists) UpdateIfVersion(ctx context.Context, w *model.Watchlist, expected int64) error {
	atomic.AddInt32(&f.writes, 1)
	if atomic.AddInt32(&f.conflicts, -1) >= 0 {
		return repository.ErrVersionConflict
	}
	return f.MemoryStore.UpdateIfVersion(ctx, w, expected)
}

// unreliableProfiles 读取指定用户资料时失败
type unreliableProfiles struct {
	*repository.MemoryStore
	failUID string
}

func (u *unreliableProfiles) GetProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	if uid == u.failUID {
		return nil, errors.New("profile store unavailable")
	}
	return u.MemoryStore.GetProfile(ctx, uid)
}

func newTestWatchlistService(t *testing.T) (*WatchlistService, *flakyWatchlists, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	for _, u := range []*model.AuthUser{alice, bob, carol} {
		require.NoError(t, store.CreateProfile(context.Background(), &model.UserProfile{
			UID:       u.UID,
			FullName:  u.UID + " Example",
			Email:     u.Email,
			Watchlist: pq.StringArray{},
			CreatedAt: time.Now(),
		}))
	}
	flaky := &flakyWatchlists{MemoryStore: store}
	return NewWatchlistService(flaky, store), flaky, store
}

func TestCreateWatchlist(t *testing.T) {
	svc, _, store := newTestWatchlistService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		members []string
	}{
		{"no members", nil},
		{"creator listed", []string{"alice"}},
		{"creator listed twice", []string{"alice", "bob", "alice"}},
		{"others only", []string{"bob", "carol"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "  Friday night  ", Members: tt.members})
			require.NoError(t, err)

			assert.NotEmpty(t, w.ID)
			assert.Equal(t, "Friday night", w.Title)
			assert.Equal(t, "alice", w.CreatedBy)
			assert.Equal(t, 1, countOf(w.Members, "alice"))
			assert.Empty(t, w.Movies)
			assert.Equal(t, w.CreatedAt, w.UpdatedAt)

			stored, err := store.FindWatchlist(ctx, w.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, w.Members, stored.Members)
		})
	}

	profile, err := store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, profile.Watchlist, len(tests))
}

func TestCreateWatchlistBlankTitle(t *testing.T) {
	svc, flaky, _ := newTestWatchlistService(t)

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := svc.Create(context.Background(), alice, model.WatchlistInput{Title: title})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrValidation))
		assert.Equal(t, "Watchlist title is required", err.Error())
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&flaky.writes))
}

func TestWatchlistRequiresIdentity(t *testing.T) {
	svc, _, _ := newTestWatchlistService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, model.WatchlistInput{Title: "x"})
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	_, err = svc.ListMine(ctx, nil)
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	_, err = svc.GetDetails(ctx, nil, "id")
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	_, err = svc.AddMovie(ctx, nil, "id", "603")
	assert.True(t, errors.Is(err, apperr.ErrAuth))

	_, err = svc.AddMember(ctx, nil, "id", "bob")
	assert.True(t, errors.Is(err, apperr.ErrAuth))
}

func TestListMine(t *testing.T) {
	svc, _, _ := newTestWatchlistService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "Alice only"})
	require.NoError(t, err)
	shared, err := svc.Create(ctx, bob, model.WatchlistInput{Title: "Shared", Members: []string{"alice"}})
	require.NoError(t, err)

	lists, err := svc.ListMine(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, lists, 2)

	lists, err = svc.ListMine(ctx, bob)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, shared.ID, lists[0].ID)

	lists, err = svc.ListMine(ctx, carol)
	require.NoError(t, err)
	assert.NotNil(t, lists)
	assert.Empty(t, lists)
}

func TestAddMovieDuplicate(t *testing.T) {
	svc, _, store := newTestWatchlistService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "Sci-fi"})
	require.NoError(t, err)

	updated, err := svc.AddMovie(ctx, alice, w.ID, "603")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"603"}, updated.Movies)
	assert.False(t, updated.UpdatedAt.Before(w.UpdatedAt))

	_, err = svc.AddMovie(ctx, alice, w.ID, "603")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDuplicate))
	assert.Equal(t, "Movie already exists in this watchlist", err.Error())

	stored, err := store.FindWatchlist(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Movies, 1)
}

func TestNonMemberCannotMutate(t *testing.T) {
	svc, flaky, store := newTestWatchlistService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "Private"})
	require.NoError(t, err)
	writes := atomic.LoadInt32(&flaky.writes)

	_, err = svc.AddMovie(ctx, bob, w.ID, "603")
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = svc.AddMember(ctx, bob, w.ID, "carol")
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))

	_, err = svc.GetDetails(ctx, bob, w.ID)
	assert.True(t, errors.Is(err, apperr.ErrAuthorization))
	assert.Equal(t, "You don't have access to this watchlist", err.Error())

	stored, err := store.FindWatchlist(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Movies)
	assert.Equal(t, pq.StringArray{"alice"}, stored.Members)
	assert.Equal(t, int64(0), stored.Version)
	assert.Equal(t, writes, atomic.LoadInt32(&flaky.writes))
}

func TestUnknownWatchlist(t *testing.T) {
	svc, _, _ := newTestWatchlistService(t)
	ctx := context.Background()

	_, err := svc.GetDetails(ctx, alice, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.AddMovie(ctx, alice, "missing", "603")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAddMember(t *testing.T) {
	svc, _, store := newTestWatchlistService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "Movie club"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, alice, w.ID, "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "User not found", err.Error())

	member, err := svc.AddMember(ctx, alice, w.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", member.ID)
	assert.Equal(t, "bob Example", member.Name)
	assert.Equal(t, "bob@example.com", member.Email)

	_, err = svc.AddMember(ctx, alice, w.ID, "bob")
	assert.True(t, errors.Is(err, apperr.ErrDuplicate))

	// 新成员可以继续添加成员
	_, err = svc.AddMember(ctx, bob, w.ID, "carol")
	require.NoError(t, err)

	stored, err := store.FindWatchlist(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"alice", "bob", "carol"}, stored.Members)

	profile, err := store.GetProfile(ctx, "bob")
	require.NoError(t, err)
	assert.Contains(t, profile.Watchlist, w.ID)
}

func TestGetDetailsMemberPlaceholders(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateProfile(ctx, &model.UserProfile{UID: "alice", FullName: "Alice", Email: "alice@example.com"}))
	require.NoError(t, store.CreateProfile(ctx, &model.UserProfile{UID: "bob"}))
	require.NoError(t, store.CreateProfile(ctx, &model.UserProfile{UID: "carol", FullName: "Carol"}))

	profiles := &unreliableProfiles{MemoryStore: store, failUID: "carol"}
	svc := NewWatchlistService(store, profiles)

	w, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "Everyone", Members: []string{"bob", "carol", "ghost"}})
	require.NoError(t, err)

	details, err := svc.GetDetails(ctx, alice, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Everyone", details.Title)
	require.Len(t, details.MemberDetails, 4)

	a, ok := details.Member("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice", a.Name)
	assert.Nil(t, a.PhotoURL)

	b, _ := details.Member("bob")
	assert.Equal(t, model.UnknownUserName, b.Name)
	assert.Equal(t, model.NoEmailProvided, b.Email)

	c, _ := details.Member("carol")
	assert.Equal(t, model.UnavailableUserName, c.Name)
	assert.Equal(t, model.UnavailableUserEmail, c.Email)

	g, _ := details.Member("ghost")
	assert.Equal(t, model.UnknownUserName, g.Name)
	assert.Equal(t, model.UserNotFoundEmail, g.Email)
}

func TestAddMovieRetriesOnVersionConflict(t *testing.T) {
	svc, flaky, store := newTestWatchlistService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "Retry"})
	require.NoError(t, err)

	atomic.StoreInt32(&flaky.conflicts, 2)
	updated, err := svc.AddMovie(ctx, alice, w.ID, "603")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	atomic.StoreInt32(&flaky.conflicts, maxWriteAttempts)
	_, err = svc.AddMovie(ctx, alice, w.ID, "604")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	stored, err := store.FindWatchlist(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"603"}, stored.Movies)
}

func TestConcurrentAddMovieNeverLosesWrites(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewWatchlistService(store, store)
	ctx := context.Background()

	w, err := svc.Create(ctx, alice, model.WatchlistInput{Title: "Race"})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		succeeded int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddMovie(ctx, alice, w.ID, strconv.Itoa(100+i))
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrConflict), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	stored, err := store.FindWatchlist(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Movies, int(atomic.LoadInt32(&succeeded)))
	assert.Equal(t, int64(atomic.LoadInt32(&succeeded)), stored.Version)
}

func countOf(items []string, v string) int {
	n := 0
	for _, item := range items {
		if item == v {
			n++
		}
	}
	return n
}
