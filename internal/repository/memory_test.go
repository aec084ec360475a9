package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/watchwise/internal/model"
)

func TestMemoryUpdateIfVersion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateWatchlist(ctx, &model.Watchlist{
		ID:      "w1",
		Title:   "Weekend",
		Members: pq.StringArray{"alice"},
	}))

	first, err := store.FindWatchlist(ctx, "w1")
	require.NoError(t, err)
	second, err := store.FindWatchlist(ctx, "w1")
	require.NoError(t, err)

	first.Movies = append(first.Movies, "603")
	require.NoError(t, store.UpdateIfVersion(ctx, first, 0))
	assert.Equal(t, int64(1), first.Version)

	// 基于旧版本的写入被拒绝
	second.Movies = append(second.Movies, "604")
	assert.ErrorIs(t, store.UpdateIfVersion(ctx, second, 0), ErrVersionConflict)

	stored, err := store.FindWatchlist(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"603"}, stored.Movies)

	assert.ErrorIs(t, store.UpdateIfVersion(ctx, &model.Watchlist{ID: "missing"}, 0), ErrVersionConflict)
}

func TestMemoryReadsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateWatchlist(ctx, &model.Watchlist{ID: "w1", Members: pq.StringArray{"alice"}}))

	w, err := store.FindWatchlist(ctx, "w1")
	require.NoError(t, err)
	w.Members[0] = "mallory"

	again, err := store.FindWatchlist(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"alice"}, again.Members)
	assert.NotNil(t, again.Movies)
}

func TestMemoryListByMember(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateWatchlist(ctx, &model.Watchlist{ID: "old", Members: pq.StringArray{"alice"}, UpdatedAt: base}))
	require.NoError(t, store.CreateWatchlist(ctx, &model.Watchlist{ID: "new", Members: pq.StringArray{"alice", "bob"}, UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.CreateWatchlist(ctx, &model.Watchlist{ID: "other", Members: pq.StringArray{"carol"}, UpdatedAt: base}))

	lists, err := store.ListByMember(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "new", lists[0].ID)
	assert.Equal(t, "old", lists[1].ID)

	lists, err = store.ListByMember(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, lists)
	assert.Empty(t, lists)
}

func TestMemoryWatchlistMarker(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateProfile(ctx, &model.UserProfile{UID: "alice"}))

	require.NoError(t, store.AppendWatchlistMarker(ctx, "alice", "w1"))
	require.NoError(t, store.AppendWatchlistMarker(ctx, "alice", "w1"))
	require.NoError(t, store.AppendWatchlistMarker(ctx, "ghost", "w1"))

	profile, err := store.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, pq.StringArray{"w1"}, profile.Watchlist)

	missing, err := store.GetProfile(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryCredentials(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateCredential(ctx, &model.Credential{UID: "u1", Email: "A@B.com", CreatedAt: base}))
	assert.ErrorIs(t, store.CreateCredential(ctx, &model.Credential{UID: "u2", Email: "a@b.com"}), ErrDuplicateEmail)
	require.NoError(t, store.CreateCredential(ctx, &model.Credential{UID: "u3", Email: "c@d.com", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.CreateCredential(ctx, &model.Credential{UID: "u4", Email: "e@f.com", CreatedAt: base.Add(time.Hour)}))

	c, err := store.FindByEmail(ctx, "a@B.COM")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "u1", c.UID)
	assert.Equal(t, "a@b.com", c.Email)

	require.NoError(t, store.CreateProfile(ctx, &model.UserProfile{UID: "u3"}))

	orphans, err := store.ListWithoutProfile(ctx, base.Add(30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "u1", orphans[0].UID)
}

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// 已过期的令牌无需记录
	require.NoError(t, store.Revoke(ctx, "jti-expired", 0))
	revoked, err = store.IsRevoked(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationStoreKeepsEntriesUnderLoad(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "jti-first", time.Hour))
	// 大量吊销不会挤掉仍在有效期内的旧条目
	for i := 0; i < 20000; i++ {
		require.NoError(t, store.Revoke(ctx, fmt.Sprintf("jti-%d", i), time.Hour))
	}

	revoked, err := store.IsRevoked(ctx, "jti-first")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-short", time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	revoked, err = store.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)
}
