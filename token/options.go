package token

import (
	"crypto/tls"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/internal/config"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/muhlemmer/gu"
)

// CacheParameters bound the token cache.
type CacheParameters struct {
	// MaxEntries is the LRU capacity.
	MaxEntries int
	// Duration caps how long any token stays cached, regardless of expires_in.
	Duration time.Duration
	// ExpirationDelta refreshes tokens this long before they expire.
	ExpirationDelta time.Duration
	// Jitter subtracts a random amount in [0, Jitter) from each expiry so that
	// tokens fetched together are not refreshed together.
	Jitter time.Duration
}

func DefaultCacheParameters() CacheParameters {
	return CacheParametersFrom(config.Load(config.New()))
}

// CacheParametersFrom converts configuration settings.
func CacheParametersFrom(s config.Settings) CacheParameters {
	return CacheParameters{
		MaxEntries:      s.CacheMaxEntries,
		Duration:        s.CacheDuration,
		ExpirationDelta: s.ExpirationDelta,
		Jitter:          s.CacheJitter,
	}
}

// Options are the per destination settings a property supplier contributes
// to token retrieval.
type Options struct {
	// SkipTokenRetrieval disables the token flow; the destination then relies
	// on ClientCertificate alone (mTLS).
	SkipTokenRetrieval bool
	// ClientCertificate is presented to the target system when set.
	ClientCertificate *tls.Certificate
	// AdditionalParameters are sent with every token request.
	AdditionalParameters map[string]string
	Timeout              time.Duration
	TenantPropagation    oauthmodel.TenantPropagationStrategy
	CacheParameters      CacheParameters
}

// DefaultOptions reads timeout and cache settings from the environment.
func DefaultOptions() Options {
	settings := config.Load(config.New())
	return Options{
		AdditionalParameters: map[string]string{},
		Timeout:              settings.TokenTimeout,
		TenantPropagation:    oauthmodel.ZIDHeader,
		CacheParameters:      CacheParametersFrom(settings),
	}
}

// Clone returns a copy that does not share the parameter map.
func (o Options) Clone() Options {
	o.AdditionalParameters = gu.MapCopy(o.AdditionalParameters)
	if o.AdditionalParameters == nil {
		o.AdditionalParameters = map[string]string{}
	}
	return o
}
