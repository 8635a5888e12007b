package connectivity

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Matcher decides whether a resolver applies to the options.
type Matcher func(Options) (bool, error)

// Factory creates the property supplier for options a resolver matched.
type Factory func(Options) (PropertySupplier, error)

// MatchResult is the outcome of asking a resolver whether it applies.
type MatchResult int

const (
	Declined MatchResult = iota
	Matched
	// Errored resolvers are logged and skipped like declined ones.
	Errored
)

func (r MatchResult) String() string {
	switch r {
	case Matched:
		return "matched"
	case Errored:
		return "errored"
	default:
		return "declined"
	}
}

// Resolver pairs a matcher with the factory of the supplier it selects.
type Resolver struct {
	name    string
	matcher Matcher
	factory Factory
}

func NewResolver(name string, matcher Matcher, factory Factory) Resolver {
	return Resolver{name: name, matcher: matcher, factory: factory}
}

// ForIdentifier matches bindings with the given service identifier.
func ForIdentifier(identifier servicebinding.ServiceIdentifier, factory Factory) Resolver {
	return NewResolver(identifier.String(), MatchIdentifier(identifier), factory)
}

func (r Resolver) Name() string { return r.name }

// Match never panics: a panicking or failing matcher yields Errored.
func (r Resolver) Match(o Options) (result MatchResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = Errored, fmt.Errorf("resolver %s panicked while matching: %v", r.name, p)
		}
	}()
	if r.matcher == nil {
		return Errored, fmt.Errorf("resolver %s has no matcher", r.name)
	}
	ok, err := r.matcher(o)
	switch {
	case err != nil:
		return Errored, errors.Wrapf(err, "resolver %s failed to match", r.name)
	case ok:
		return Matched, nil
	default:
		return Declined, nil
	}
}

// Resolve runs the factory behind a panic boundary.
func (r Resolver) Resolve(o Options) (supplier PropertySupplier, err error) {
	defer func() {
		if p := recover(); p != nil {
			supplier, err = nil, fmt.Errorf("resolver %s panicked while resolving: %v", r.name, p)
		}
	}()
	if r.factory == nil {
		return nil, fmt.Errorf("resolver %s has no factory", r.name)
	}
	supplier, err = r.factory(o)
	if err != nil {
		return nil, errors.Wrapf(err, "resolver %s failed to create a property supplier", r.name)
	}
	if supplier == nil {
		return nil, fmt.Errorf("resolver %s returned no property supplier", r.name)
	}
	return supplier, nil
}

func isOAuth2Binding(s PropertySupplier) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok, err = false, fmt.Errorf("property supplier %T panicked: %v", s, p)
		}
	}()
	return s.IsOAuth2Binding()
}

func MatchIdentifier(identifiers ...servicebinding.ServiceIdentifier) Matcher {
	return func(o Options) (bool, error) {
		id, ok := o.ServiceBinding().Identifier()
		if !ok {
			return false, nil
		}
		for _, candidate := range identifiers {
			if servicebinding.Identifier(candidate.String()) == id {
				return true, nil
			}
		}
		return false, nil
	}
}

// MatchIdentifierGlob matches identifiers against a glob pattern such as
// "business-*".
func MatchIdentifierGlob(pattern string) (Matcher, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid identifier pattern %q", pattern)
	}
	return func(o Options) (bool, error) {
		id, ok := o.ServiceBinding().Identifier()
		return ok && g.Match(id.String()), nil
	}, nil
}

func MatchTag(tag string) Matcher {
	return func(o Options) (bool, error) {
		return o.ServiceBinding().HasTag(tag), nil
	}
}

// MatchCredential matches bindings that carry a value at path.
func MatchCredential(path ...string) Matcher {
	return func(o Options) (bool, error) {
		_, ok := o.ServiceBinding().Credential(path...)
		return ok, nil
	}
}

// MatchAny matches when one of matchers does. Errors of earlier matchers are
// returned only if no later matcher matches.
func MatchAny(matchers ...Matcher) Matcher {
	return func(o Options) (bool, error) {
		var firstErr error
		for _, m := range matchers {
			ok, err := m(o)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				return true, nil
			}
		}
		return false, firstErr
	}
}

// Registry is the ordered resolver chain. Registered resolvers are consulted
// most recent first, then the builtins. It is safe for concurrent use;
// lookups iterate a snapshot.
type Registry struct {
	mu       sync.RWMutex
	custom   []Resolver
	builtins []Resolver
}

// NewRegistry returns a registry holding the builtin resolvers.
func NewRegistry() *Registry {
	return &Registry{builtins: BuiltinResolvers()}
}

// NewRegistryWith returns a registry whose builtins are replaced by resolvers.
func NewRegistryWith(resolvers ...Resolver) *Registry {
	return &Registry{builtins: append([]Resolver(nil), resolvers...)}
}

// Register prepends a resolver.
func (r *Registry) Register(matcher Matcher, factory Factory) {
	r.RegisterResolver(NewResolver("", matcher, factory))
}

func (r *Registry) RegisterForIdentifier(identifier servicebinding.ServiceIdentifier, factory Factory) {
	r.RegisterResolver(ForIdentifier(identifier, factory))
}

func (r *Registry) RegisterResolver(resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resolver.name == "" {
		resolver.name = fmt.Sprintf("custom-%d", len(r.custom)+1)
	}
	log.Debug().Str("resolver", resolver.name).Msg("prepending property supplier resolver")
	r.custom = append([]Resolver{resolver}, r.custom...)
}

// Reset drops every registered resolver, keeping the builtins.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.Warn().Msg("resetting the property supplier resolvers")
	r.custom = nil
}

// Resolvers returns a snapshot of the chain in lookup order.
func (r *Registry) Resolvers() []Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resolver, 0, len(r.custom)+len(r.builtins))
	out = append(out, r.custom...)
	return append(out, r.builtins...)
}

// Lookup returns the supplier of the first resolver that matches, resolves and
// confirms an OAuth2 binding. Failing resolvers are logged and skipped.
func (r *Registry) Lookup(o Options) (PropertySupplier, bool) {
	service := o.Identifier().String()
	for _, resolver := range r.Resolvers() {
		result, err := resolver.Match(o)
		if result == Errored {
			log.Warn().Err(err).Str("resolver", resolver.name).Str("service", service).Msg("failed to check whether binding options match the resolver")
			continue
		}
		if result == Declined {
			continue
		}

		supplier, err := resolver.Resolve(o)
		if err != nil {
			log.Warn().Err(err).Str("resolver", resolver.name).Str("service", service).Msg("failed to resolve the property supplier")
			continue
		}

		ok, err := isOAuth2Binding(supplier)
		if err != nil {
			log.Warn().Err(err).Str("resolver", resolver.name).Str("service", service).Msg("failed to check whether the property supplier supports OAuth2")
			continue
		}
		if !ok {
			log.Debug().Str("resolver", resolver.name).Str("service", service).Msg("binding is not an OAuth2 binding for this resolver")
			continue
		}
		return supplier, true
	}
	return nil, false
}
