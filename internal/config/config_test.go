package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAccessToken(t *testing.T) {
	t.Setenv("TMDB_ACCESS_TOKEN", "")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrMissingAccessToken)
	assert.Equal(t, "No access token provided", err.Error())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TMDB_ACCESS_TOKEN", "token")
	t.Setenv("TMDB_REGION", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("JWT_EXPIRY_HOURS", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.TMDBToken)
	assert.Equal(t, "IN", cfg.TMDBRegion)
	assert.Equal(t, "en-IN", cfg.TMDBLanguage)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 72*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 15*time.Minute, cfg.ReconcileInterval)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TMDB_ACCESS_TOKEN", "token")
	t.Setenv("TMDB_REGION", "US")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("AUTH_RATE_LIMIT", "0.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "US", cfg.TMDBRegion)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 0.5, cfg.AuthRateLimit)
}
