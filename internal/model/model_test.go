package model

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindGenre(t *testing.T) {
	g, ok := FindGenre(878)
	require.True(t, ok)
	assert.Equal(t, "Science Fiction", g.Name)
	assert.Equal(t, "Top Science Fiction Movies This Week", g.Heading)
	assert.Equal(t, "Check out this week's most popular science fiction movies", g.Subheading)

	_, ok = FindGenre(1)
	assert.False(t, ok)
}

func TestGenreIDsUnique(t *testing.T) {
	seen := make(map[int]bool)
	for _, g := range Genres {
		assert.False(t, seen[g.ID], "duplicate genre id %d", g.ID)
		seen[g.ID] = true
	}
	assert.Len(t, Genres, 19)
}

func TestForRegion(t *testing.T) {
	providers := &WatchProviders{
		ID: 603,
		Results: map[string]RegionProviders{
			"IN": {Flatrate: []WatchProvider{{ProviderID: 8, ProviderName: "Netflix"}}},
		},
	}

	in := providers.ForRegion("IN")
	assert.Len(t, in.Flatrate, 1)
	assert.NotNil(t, in.Rent)
	assert.False(t, in.Empty())

	us := providers.ForRegion("US")
	assert.True(t, us.Empty())
	assert.NotNil(t, us.Buy)

	var missing *WatchProviders
	assert.True(t, missing.ForRegion("IN").Empty())
}

func TestWatchlistMembership(t *testing.T) {
	w := &Watchlist{
		Members: pq.StringArray{"u1", "u2"},
		Movies:  pq.StringArray{"603"},
	}
	assert.True(t, w.HasMember("u2"))
	assert.False(t, w.HasMember("u3"))
	assert.True(t, w.HasMovie("603"))
	assert.False(t, w.HasMovie("604"))

	d := &WatchlistDetails{MemberDetails: []MemberDetail{{ID: "u1", Name: "A B"}}}
	m, ok := d.Member("u1")
	assert.True(t, ok)
	assert.Equal(t, "A B", m.Name)
	_, ok = d.Member("u9")
	assert.False(t, ok)
}
