package connectivity

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/destination"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauth2"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/resilience"
	"github.com/jrsteele09/go-btp-connectivity/token"
	"github.com/rs/zerolog/log"
)

// DestinationLoader turns binding options into a destination.
type DestinationLoader interface {
	TryGetDestination(ctx context.Context, options Options) (*destination.HttpDestination, error)
}

// Loader builds OAuth2 destinations for bindings recognised by its registry.
// Token caches, HTTP clients and circuit breakers are shared by all
// destinations of a loader.
type Loader struct {
	registry *Registry
	clients  token.HTTPClientFactory
	fetcher  token.Fetcher
	executor *resilience.Executor

	mu     sync.Mutex
	caches map[token.CacheParameters]*token.Cache
}

var _ DestinationLoader = (*Loader)(nil)

type LoaderOption func(*Loader)

func WithRegistry(registry *Registry) LoaderOption {
	return func(l *Loader) {
		l.registry = registry
	}
}

func WithHTTPClientFactory(factory token.HTTPClientFactory) LoaderOption {
	return func(l *Loader) {
		l.clients = factory
	}
}

func WithFetcher(fetcher token.Fetcher) LoaderOption {
	return func(l *Loader) {
		l.fetcher = fetcher
	}
}

func WithExecutor(executor *resilience.Executor) LoaderOption {
	return func(l *Loader) {
		l.executor = executor
	}
}

// WithTokenCache makes cache serve all destinations whose cache parameters
// equal the cache's.
func WithTokenCache(cache *token.Cache) LoaderOption {
	return func(l *Loader) {
		l.caches[cache.Parameters()] = cache
	}
}

func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{caches: map[token.CacheParameters]*token.Cache{}}
	for _, opt := range options {
		opt(l)
	}
	if l.registry == nil {
		l.registry = NewRegistry()
	}
	if l.clients == nil {
		l.clients = token.NewClientFactory()
	}
	if l.fetcher == nil {
		l.fetcher = token.NewHTTPFetcher()
	}
	if l.executor == nil {
		l.executor = resilience.NewExecutor()
	}
	return l
}

func (l *Loader) Registry() *Registry { return l.registry }

// ClearCache drops all cached tokens.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.caches {
		c.Clear()
	}
}

func (l *Loader) tokenCache(params token.CacheParameters) *token.Cache {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.caches[params]; ok {
		return c
	}
	c := token.NewCache(params)
	l.caches[params] = c
	return c
}

type oauth2Properties struct {
	serviceURI *url.URL
	tokenURI   *url.URL
	identity   clients.Identity
	options    token.Options
}

func extractProperties(ctx context.Context, s PropertySupplier) (props oauth2Properties, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("property supplier %T panicked: %v", s, p)
		}
	}()
	if props.serviceURI, err = s.ServiceURI(); err != nil {
		return props, err
	}
	if props.tokenURI, err = s.TokenURI(); err != nil {
		return props, err
	}
	if props.identity, err = s.ClientIdentity(); err != nil {
		return props, err
	}
	if props.options, err = s.OAuth2Options(ctx); err != nil {
		return props, err
	}
	return props, nil
}

// TryGetDestination resolves the property supplier for options and builds
// a destination from it. When options carry a ProxyOption the result is the
// proxied destination routed through the resolved service.
//
// Errors: ErrDestinationNotFound if no resolver applies, ErrDestinationAccess
// if the binding was recognised but its properties are unusable.
func (l *Loader) TryGetDestination(ctx context.Context, options Options) (*destination.HttpDestination, error) {
	identifier := options.Identifier()
	log.Debug().Str("service", identifier.String()).Msg("creating an OAuth2 destination")

	supplier, ok := l.registry.Lookup(options)
	if !ok {
		return nil, apperrors.NotFound(nil,
			"No property mapping for the provided service %s found. You may provide your own mapping by registering a property supplier.", identifier)
	}

	props, err := extractProperties(ctx, supplier)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDestinationAccess) {
			return nil, err
		}
		return nil, apperrors.Access(err, "Failed to retrieve OAuth2 properties for service binding of service '%s'.", identifier)
	}

	if proxy, ok := GetOption[ProxyOption](options); ok && proxy.Destination != nil {
		log.Debug().Str("service", identifier.String()).Str("destination", proxy.Destination.Name()).Msg("using the service as a proxy for the destination")
		return l.toProxiedDestination(proxy.Destination, supplier, props, options)
	}
	return l.toDestination(supplier, props, options)
}

func (l *Loader) toDestination(supplier PropertySupplier, props oauth2Properties, options Options) (*destination.HttpDestination, error) {
	identifier := options.Identifier()
	name := fmt.Sprintf("%s-%s", identifier, clients.HashString(props.identity.ID()))

	provider := l.headerProvider(oauth2.AuthorizationHeader, supplier, props, options.OnBehalfOf(), "")
	b := destination.NewBuilder(props.serviceURI.String()).
		Name(name).
		HeaderProvider(provider).
		Resilience(destinationResilience(options, identifier.String(), props.options.Timeout))
	if props.options.ClientCertificate != nil {
		b.ClientCertificate(props.options.ClientCertificate)
	}
	d, err := b.Build()
	if err != nil {
		return nil, apperrors.Access(err, "Failed to instantiate OAuth destination based on given properties.")
	}
	return d, nil
}

// toProxiedDestination keeps everything of base and adds the proxy together
// with a Proxy-Authorization header from the proxy's own token flow.
func (l *Loader) toProxiedDestination(base *destination.HttpDestination, supplier PropertySupplier, props oauth2Properties, options Options) (*destination.HttpDestination, error) {
	provider := l.headerProvider(oauth2.ProxyAuthorizationHeader, supplier, props, options.OnBehalfOf(), base.Name())
	d, err := destination.FromDestination(base).
		Proxy(props.serviceURI.String(), destination.OnPremise).
		HeaderProvider(provider).
		Resilience(destinationResilience(options, base.Name(), props.options.Timeout)).
		Build()
	if err != nil {
		return nil, apperrors.Access(err, "Failed to instantiate OAuth destination based on given properties.")
	}
	return d, nil
}

func destinationResilience(options Options, identifier string, timeout time.Duration) resilience.Configuration {
	if override, ok := GetOption[ResilienceOption](options); ok {
		return resilience.Configuration(override)
	}
	return resilience.Of(identifier).WithTimeout(timeout)
}

// headerProvider re-evaluates the supplier's OAuth2 options on each call, as
// token retrieval may depend on the tenant of the call.
func (l *Loader) headerProvider(header string, supplier PropertySupplier, props oauth2Properties, behalf oauthmodel.OnBehalfOf, resilienceID string) *OAuth2HeaderProvider {
	return &OAuth2HeaderProvider{
		header: header,
		resolve: func(ctx context.Context) (*token.Service, error) {
			opts, err := supplier.OAuth2Options(ctx)
			if err != nil {
				return nil, err
			}
			if opts.SkipTokenRetrieval {
				return nil, nil
			}
			serviceOptions := []token.ServiceOption{
				token.WithOnBehalfOf(behalf),
				token.WithOptions(opts),
				token.WithCache(l.tokenCache(opts.CacheParameters)),
				token.WithClientFactory(l.clients),
				token.WithFetcher(l.fetcher),
				token.WithExecutor(l.executor),
			}
			if resilienceID != "" {
				serviceOptions = append(serviceOptions, token.WithResilience(
					resilience.Of(resilienceID).WithIsolation(resilience.TenantOptional).WithTimeout(opts.Timeout)))
			}
			return token.NewService(props.tokenURI.String(), props.identity, serviceOptions...)
		},
	}
}

// OAuth2HeaderProvider emits a bearer token header, Authorization for
// direct destinations and Proxy-Authorization for proxied ones. It emits
// nothing when token retrieval is skipped.
type OAuth2HeaderProvider struct {
	header  string
	resolve func(ctx context.Context) (*token.Service, error)
}

var _ destination.HeaderProvider = (*OAuth2HeaderProvider)(nil)

// NewOAuth2HeaderProvider always uses service.
func NewOAuth2HeaderProvider(header string, service *token.Service) *OAuth2HeaderProvider {
	return &OAuth2HeaderProvider{
		header: header,
		resolve: func(context.Context) (*token.Service, error) {
			return service, nil
		},
	}
}

func (p *OAuth2HeaderProvider) HeaderName() string { return p.header }

func (p *OAuth2HeaderProvider) Headers(ctx context.Context, _ *destination.HttpDestination) ([]destination.Header, error) {
	service, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if service == nil {
		return nil, nil
	}
	accessToken, err := service.RetrieveAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return []destination.Header{{Name: p.header, Value: oauth2.BearerValue(accessToken)}}, nil
}
