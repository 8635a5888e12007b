package config

import "time"

const (
	tokenTimeoutVar         = "BTP_TOKEN_TIMEOUT"
	cacheSizeVar            = "BTP_TOKEN_CACHE_SIZE"
	cacheDurationVar        = "BTP_TOKEN_CACHE_DURATION"
	cacheJitterVar          = "BTP_TOKEN_CACHE_JITTER"
	cacheExpirationDeltaVar = "BTP_TOKEN_EXPIRATION_DELTA"
)

type TokenConfig interface {
	GetTokenTimeout() time.Duration
	GetCacheMaxEntries() int
	GetCacheDuration() time.Duration
	GetCacheJitter() time.Duration
	GetCacheExpirationDelta() time.Duration
}

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetTokenTimeout() time.Duration {
	return GetEnvDuration(tokenTimeoutVar, 10*time.Second)
}

func (Token) GetCacheMaxEntries() int {
	return GetEnvInt(cacheSizeVar, 1000)
}

func (Token) GetCacheDuration() time.Duration {
	return GetEnvDuration(cacheDurationVar, time.Hour)
}

func (Token) GetCacheJitter() time.Duration {
	return GetEnvDuration(cacheJitterVar, 0)
}

// GetCacheExpirationDelta is how long before the reported expiry a token is refreshed.
func (Token) GetCacheExpirationDelta() time.Duration {
	return GetEnvDuration(cacheExpirationDeltaVar, 30*time.Second)
}
