package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	settings := config.Load(config.New())
	require.Equal(t, 10*time.Second, settings.TokenTimeout)
	require.Equal(t, 1000, settings.CacheMaxEntries)
	require.Equal(t, time.Hour, settings.CacheDuration)
	require.Equal(t, time.Duration(0), settings.CacheJitter)
	require.Equal(t, 30*time.Second, settings.ExpirationDelta)
	require.Equal(t, zerolog.InfoLevel, config.New().GetLogLevel())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BTP_TOKEN_TIMEOUT", "3s")
	t.Setenv("BTP_TOKEN_CACHE_SIZE", "50")
	t.Setenv("BTP_TOKEN_CACHE_JITTER", "not-a-duration")
	t.Setenv("BTP_LOG_LEVEL", "debug")

	c := config.New()
	settings := config.Load(c)
	require.Equal(t, 3*time.Second, settings.TokenTimeout)
	require.Equal(t, 50, settings.CacheMaxEntries)
	require.Equal(t, time.Duration(0), settings.CacheJitter)
	require.Equal(t, zerolog.DebugLevel, c.GetLogLevel())
}

func TestUnknownLogLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("BTP_LOG_LEVEL", "chatty")
	require.Equal(t, zerolog.InfoLevel, config.New().GetLogLevel())
}

func TestMerge(t *testing.T) {
	base := config.Settings{TokenTimeout: 10 * time.Second, CacheMaxEntries: 1000, CacheDuration: time.Hour}

	merged, err := config.Merge(base,
		config.Settings{TokenTimeout: 2 * time.Second},
		config.Settings{CacheMaxEntries: 10, TokenTimeout: 5 * time.Second})
	require.NoError(t, err)

	require.Equal(t, 5*time.Second, merged.TokenTimeout)
	require.Equal(t, 10, merged.CacheMaxEntries)
	require.Equal(t, time.Hour, merged.CacheDuration)
	require.Equal(t, 10*time.Second, base.TokenTimeout)
}
