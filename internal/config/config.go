package config

import (
	"time"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Config interface {
	EnvConfig
	TokenConfig
}

type EnvConfig interface {
	GetAppName() string
	GetLogLevel() zerolog.Level
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Token
}

func New() Config {
	return mainConfig{}
}

// Settings is a snapshot of the token related configuration. Zero values are
// treated as "not set" when merging.
type Settings struct {
	TokenTimeout    time.Duration
	CacheMaxEntries int
	CacheDuration   time.Duration
	CacheJitter     time.Duration
	ExpirationDelta time.Duration
}

// Load reads the current values of c into a Settings snapshot.
func Load(c TokenConfig) Settings {
	return Settings{
		TokenTimeout:    c.GetTokenTimeout(),
		CacheMaxEntries: c.GetCacheMaxEntries(),
		CacheDuration:   c.GetCacheDuration(),
		CacheJitter:     c.GetCacheJitter(),
		ExpirationDelta: c.GetCacheExpirationDelta(),
	}
}

// Merge layers the non-zero fields of each override over base, later overrides winning.
func Merge(base Settings, overrides ...Settings) (Settings, error) {
	merged := base
	for _, o := range overrides {
		if err := mergo.Merge(&merged, o, mergo.WithOverride); err != nil {
			return base, errors.Wrap(err, "failed to merge settings")
		}
	}
	return merged, nil
}
