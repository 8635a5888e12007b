package token_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/token"
	"github.com/stretchr/testify/require"
	xoauth2 "golang.org/x/oauth2"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func countingFetch(calls *int, lifetime time.Duration, now func() time.Time) func(context.Context) (*xoauth2.Token, error) {
	return func(context.Context) (*xoauth2.Token, error) {
		*calls++
		return &xoauth2.Token{AccessToken: "token", Expiry: now().Add(lifetime)}, nil
	}
}

func TestCacheRefreshesBeforeExpiry(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := token.NewCache(token.CacheParameters{MaxEntries: 10, ExpirationDelta: 30 * time.Second}, token.WithCacheNowFunc(c.Now))
	key := token.CacheKey{Identity: "id", TokenURI: "https://auth/oauth/token"}

	calls := 0
	fetch := countingFetch(&calls, time.Minute, c.Now)

	_, err := cache.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)

	c.now = c.now.Add(20 * time.Second)
	_, err = cache.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	c.now = c.now.Add(11 * time.Second)
	_, err = cache.GetOrFetch(context.Background(), key, fetch)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestCacheJitterShortensLifetime(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := token.NewCache(token.CacheParameters{MaxEntries: 10, Jitter: time.Minute},
		token.WithCacheNowFunc(c.Now),
		token.WithJitterFunc(func(max time.Duration) time.Duration { return max / 2 }))
	key := token.CacheKey{Identity: "id"}

	calls := 0
	fetch := countingFetch(&calls, 2*time.Minute, c.Now)
	_, _ = cache.GetOrFetch(context.Background(), key, fetch)

	c.now = c.now.Add(89 * time.Second)
	_, _ = cache.GetOrFetch(context.Background(), key, fetch)
	require.Equal(t, 1, calls)

	c.now = c.now.Add(2 * time.Second)
	_, _ = cache.GetOrFetch(context.Background(), key, fetch)
	require.Equal(t, 2, calls)
}

func TestCacheDoesNotStoreShortLivedTokens(t *testing.T) {
	c := &clock{now: time.Now()}
	cache := token.NewCache(token.CacheParameters{MaxEntries: 10, ExpirationDelta: time.Minute}, token.WithCacheNowFunc(c.Now))

	calls := 0
	fetch := countingFetch(&calls, 30*time.Second, c.Now)
	got, err := cache.GetOrFetch(context.Background(), token.CacheKey{}, fetch)
	require.NoError(t, err)
	require.Equal(t, "token", got)
	require.Equal(t, 0, cache.Len())
}

func TestCacheKeysAreIsolated(t *testing.T) {
	cache := token.NewCache(token.CacheParameters{MaxEntries: 10})
	base := token.CacheKey{Identity: "id", TokenURI: "https://a/oauth/token", TenantID: "t1"}
	variants := []token.CacheKey{
		base,
		{Identity: "id", TokenURI: "https://b/oauth/token", TenantID: "t1"},
		{Identity: "id", TokenURI: "https://a/oauth/token", TenantID: "t2"},
		{Identity: "other", TokenURI: "https://a/oauth/token", TenantID: "t1"},
		{Identity: "id", TokenURI: "https://a/oauth/token", TenantID: "t1", Subject: "user"},
	}

	calls := 0
	fetch := countingFetch(&calls, time.Hour, time.Now)
	for _, key := range variants {
		_, err := cache.GetOrFetch(context.Background(), key, fetch)
		require.NoError(t, err)
	}
	_, err := cache.GetOrFetch(context.Background(), base, fetch)
	require.NoError(t, err)
	require.Equal(t, len(variants), calls)

	cache.Invalidate(base)
	_, _ = cache.GetOrFetch(context.Background(), base, fetch)
	require.Equal(t, len(variants)+1, calls)

	cache.Clear()
	require.Equal(t, 0, cache.Len())
}

func TestCacheKeyStringIsUnambiguous(t *testing.T) {
	a := token.CacheKey{Identity: "id|x", TokenURI: "https://a/oauth/token"}
	b := token.CacheKey{Identity: "id", TokenURI: "x|https://a/oauth/token"}
	require.NotEqual(t, a.String(), b.String())

	c := token.CacheKey{TenantID: "t", Subject: `"|"`}
	d := token.CacheKey{TenantID: `t"|"`}
	require.NotEqual(t, c.String(), d.String())
}

func TestCacheRejectsNilToken(t *testing.T) {
	cache := token.NewCache(token.CacheParameters{})
	_, err := cache.GetOrFetch(context.Background(), token.CacheKey{}, func(context.Context) (*xoauth2.Token, error) {
		return nil, nil
	})
	require.ErrorIs(t, err, apperrors.ErrOAuthToken)

	boom := errors.New("boom")
	_, err = cache.GetOrFetch(context.Background(), token.CacheKey{}, func(context.Context) (*xoauth2.Token, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, cache.Len())
}

func TestCacheMaxEntries(t *testing.T) {
	cache := token.NewCache(token.CacheParameters{MaxEntries: 2})
	calls := 0
	fetch := countingFetch(&calls, time.Hour, time.Now)
	for _, tenant := range []string{"a", "b", "c"} {
		_, _ = cache.GetOrFetch(context.Background(), token.CacheKey{TenantID: tenant}, fetch)
	}
	require.Equal(t, 2, cache.Len())
	require.Equal(t, 2, cache.Parameters().MaxEntries)
}
