package token

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"golang.org/x/crypto/blake2b"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// CachedToken is an access token together with the instant after which it
// must no longer be served from the cache.
type CachedToken struct {
	AccessToken string
	Expiry      time.Time
}

// CacheKey identifies one token. Every component takes part in equality, so
// tokens are never shared across tenants, token endpoints, users or request
// parameters.
type CacheKey struct {
	Identity   string // clients.Fingerprint of the client identity
	TokenURI   string // effective token endpoint, after tenant propagation
	OnBehalfOf oauthmodel.OnBehalfOf
	TenantID   string
	Subject    string // digest of the user assertion for named user flows
	Parameters string // digest of the additional token parameters
}

// String quotes every component, so distinct keys never share a string.
func (k CacheKey) String() string {
	return fmt.Sprintf("%q|%q|%q|%q|%q|%q", k.Identity, k.TokenURI, k.OnBehalfOf.String(), k.TenantID, k.Subject, k.Parameters)
}

func digest(s string) string {
	if s == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

func parametersDigest(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
		b.WriteByte('&')
	}
	return digest(b.String())
}

// Cache is a bounded, expiring token cache. Concurrent lookups of the same key
// share a single fetch; different keys never block each other.
type Cache struct {
	entries *expirable.LRU[CacheKey, CachedToken]
	group   singleflight.Group
	params  CacheParameters
	nowFunc func() time.Time
	jitter  func(max time.Duration) time.Duration
}

type CacheOption func(*Cache)

func WithCacheNowFunc(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowFunc = now
	}
}

func WithJitterFunc(jitter func(max time.Duration) time.Duration) CacheOption {
	return func(c *Cache) {
		c.jitter = jitter
	}
}

func NewCache(params CacheParameters, options ...CacheOption) *Cache {
	if params.MaxEntries <= 0 {
		params.MaxEntries = 1000
	}
	c := &Cache{
		params:  params,
		entries: expirable.NewLRU[CacheKey, CachedToken](params.MaxEntries, nil, params.Duration),
		nowFunc: time.Now,
		jitter:  randomJitter,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

// Parameters returns the parameters the cache was built with.
func (c *Cache) Parameters() CacheParameters {
	return c.params
}

// GetOrFetch returns the cached token for key or runs fetch exactly once for
// all concurrent callers of the same key. The shared fetch is detached from
// the cancellation of whichever caller started it; each caller still stops
// waiting when its own ctx is done.
func (c *Cache) GetOrFetch(ctx context.Context, key CacheKey, fetch func(context.Context) (*xoauth2.Token, error)) (string, error) {
	if token, ok := c.lookup(key); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return token, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		if token, ok := c.lookup(key); ok {
			return token, nil
		}
		token, err := fetch(shared)
		if err != nil {
			return "", err
		}
		if token == nil || token.AccessToken == "" {
			return "", apperrors.OAuthToken(nil, "OAuth2 token request failed: no access token for '%s'", key.TokenURI)
		}
		c.store(key, token)
		return token.AccessToken, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Cache) lookup(key CacheKey) (string, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	if !c.nowFunc().Before(entry.Expiry) {
		c.entries.Remove(key)
		return "", false
	}
	return entry.AccessToken, true
}

func (c *Cache) store(key CacheKey, token *xoauth2.Token) {
	now := c.nowFunc()
	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = now.Add(c.params.Duration)
	}
	expiry = expiry.Add(-c.params.ExpirationDelta).Add(-c.jitter(c.params.Jitter))
	if !now.Before(expiry) {
		return
	}
	c.entries.Add(key, CachedToken{AccessToken: token.AccessToken, Expiry: expiry})
}

// Invalidate drops the token stored under key.
func (c *Cache) Invalidate(key CacheKey) {
	c.entries.Remove(key)
}

// Clear drops all tokens.
func (c *Cache) Clear() {
	c.entries.Purge()
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
