package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/tenants"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Isolation decides whether resilience state is shared between tenants.
type Isolation int

const (
	// TenantOptional isolates per tenant when one is present in the context.
	TenantOptional Isolation = iota
	// TenantRequired fails calls made without a tenant.
	TenantRequired
	// NoIsolation shares state between all tenants.
	NoIsolation
)

const DefaultTimeout = 10 * time.Second

type CircuitBreaker struct {
	Enabled bool
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenDuration is how long the breaker stays open before probing.
	OpenDuration time.Duration
	// HalfOpenRequests is the number of probes allowed while half open.
	HalfOpenRequests uint32
}

// Configuration describes the boundary around one logical target.
type Configuration struct {
	Identifier     string
	Isolation      Isolation
	Timeout        time.Duration
	CircuitBreaker CircuitBreaker
}

// Of returns the default configuration for identifier.
func Of(identifier string) Configuration {
	return Configuration{
		Identifier: identifier,
		Isolation:  TenantOptional,
		Timeout:    DefaultTimeout,
		CircuitBreaker: CircuitBreaker{
			Enabled:          true,
			FailureThreshold: 5,
			OpenDuration:     time.Minute,
			HalfOpenRequests: 1,
		},
	}
}

func (c Configuration) WithTimeout(timeout time.Duration) Configuration {
	c.Timeout = timeout
	return c
}

func (c Configuration) WithIsolation(isolation Isolation) Configuration {
	c.Isolation = isolation
	return c
}

func (c Configuration) WithoutCircuitBreaker() Configuration {
	c.CircuitBreaker.Enabled = false
	return c
}

// Executor owns the circuit breaker state for every configuration it has seen.
type Executor struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewExecutor() *Executor {
	return &Executor{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Reset forgets all breaker state.
func (e *Executor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.breakers = make(map[string]*gobreaker.CircuitBreaker)
}

// State returns the breaker state for cfg in the tenant of ctx.
func (e *Executor) State(ctx context.Context, cfg Configuration) gobreaker.State {
	key, err := isolationKey(ctx, cfg)
	if err != nil {
		return gobreaker.StateClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cb, ok := e.breakers[key]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

func (e *Executor) breaker(key string, cfg CircuitBreaker) *gobreaker.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cb, ok := e.breakers[key]; ok {
		return cb
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Calls abandoned by their caller say nothing about the target.
		IsSuccessful: func(err error) bool {
			var abandoned *callerAbandoned
			return err == nil || errors.As(err, &abandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	e.breakers[key] = cb
	return cb
}

func isolationKey(ctx context.Context, cfg Configuration) (string, error) {
	tenantID := tenants.IDFromContext(ctx)
	switch cfg.Isolation {
	case TenantRequired:
		if tenantID == "" {
			return "", apperrors.Access(nil, "resilience configuration '%s' requires a tenant", cfg.Identifier)
		}
		return cfg.Identifier + "#" + tenantID, nil
	case TenantOptional:
		if tenantID == "" {
			return cfg.Identifier, nil
		}
		return cfg.Identifier + "#" + tenantID, nil
	default:
		return cfg.Identifier, nil
	}
}

// callerAbandoned marks an error caused by the caller's own context.
type callerAbandoned struct {
	err error
}

func (c *callerAbandoned) Error() string { return c.err.Error() }
func (c *callerAbandoned) Unwrap() error { return c.err }

type result[T any] struct {
	value T
	err   error
}

// Execute runs fn inside the boundary described by cfg. fn receives a context
// bounded by cfg.Timeout; if fn does not return in time the call fails even
// when fn ignores its context.
func Execute[T any](ctx context.Context, e *Executor, cfg Configuration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	key, err := isolationKey(ctx, cfg)
	if err != nil {
		return zero, err
	}

	call := func() (T, error) {
		v, err := withTimeout(ctx, cfg, fn)
		if err != nil && ctx.Err() != nil {
			return v, &callerAbandoned{err: err}
		}
		return v, err
	}

	if !cfg.CircuitBreaker.Enabled || e == nil {
		v, err := call()
		return v, unwrapAbandoned(err)
	}

	v, err := e.breaker(key, cfg.CircuitBreaker).Execute(func() (interface{}, error) {
		return call()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return zero, fmt.Errorf("%w: circuit breaker '%s': %v", apperrors.ErrResilience, key, err)
	}
	if err != nil {
		return zero, unwrapAbandoned(err)
	}
	value, _ := v.(T)
	return value, nil
}

func unwrapAbandoned(err error) error {
	var abandoned *callerAbandoned
	if errors.As(err, &abandoned) {
		return abandoned.err
	}
	return err
}

func withTimeout[T any](parent context.Context, cfg Configuration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.Timeout <= 0 {
		return fn(parent)
	}

	ctx, cancel := context.WithTimeout(parent, cfg.Timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return zero, fmt.Errorf("call to '%s' abandoned by the caller: %w", cfg.Identifier, err)
		}
		return zero, fmt.Errorf("%w: '%s' did not complete within %s: %v", apperrors.ErrResilience, cfg.Identifier, cfg.Timeout, ctx.Err())
	}
}
