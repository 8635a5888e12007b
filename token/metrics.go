package token

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/jrsteele09/go-btp-connectivity/token")

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btp",
		Subsystem: "token",
		Name:      "cache_lookups_total",
		Help:      "Token cache lookups by result.",
	}, []string{"result"})

	tokenRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btp",
		Subsystem: "token",
		Name:      "requests_total",
		Help:      "Token endpoint requests by grant type and outcome.",
	}, []string{"grant", "outcome"})

	tokenRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btp",
		Subsystem: "token",
		Name:      "request_duration_seconds",
		Help:      "Token endpoint request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"grant"})
)
