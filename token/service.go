package token

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauth2"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/resilience"
	"github.com/jrsteele09/go-btp-connectivity/tenants"
	"github.com/jrsteele09/go-btp-connectivity/token/jwt"
	"github.com/muhlemmer/gu"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	xoauth2 "golang.org/x/oauth2"
)

const defaultTokenPath = "/oauth/token"

// Service retrieves access tokens for one client identity at one token
// endpoint. It is safe for concurrent use.
type Service struct {
	tokenURI    *url.URL
	identity    clients.Identity
	onBehalfOf  oauthmodel.OnBehalfOf
	propagation oauthmodel.TenantPropagationStrategy
	parameters  map[string]string
	timeout     time.Duration
	resilience  *resilience.Configuration
	cache       *Cache
	clients     HTTPClientFactory
	fetcher     Fetcher
	executor    *resilience.Executor
}

type ServiceOption func(*Service)

func WithOnBehalfOf(behalf oauthmodel.OnBehalfOf) ServiceOption {
	return func(s *Service) {
		s.onBehalfOf = behalf
	}
}

func WithTenantPropagation(strategy oauthmodel.TenantPropagationStrategy) ServiceOption {
	return func(s *Service) {
		s.propagation = strategy
	}
}

// WithAdditionalParameters copies params; later changes to the map are not observed.
func WithAdditionalParameters(params map[string]string) ServiceOption {
	return func(s *Service) {
		gu.MapMerge(params, s.parameters)
	}
}

func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = timeout
	}
}

// WithResilience replaces the derived resilience configuration.
func WithResilience(cfg resilience.Configuration) ServiceOption {
	return func(s *Service) {
		s.resilience = &cfg
	}
}

func WithCache(cache *Cache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithClientFactory(factory HTTPClientFactory) ServiceOption {
	return func(s *Service) {
		s.clients = factory
	}
}

func WithFetcher(fetcher Fetcher) ServiceOption {
	return func(s *Service) {
		s.fetcher = fetcher
	}
}

func WithExecutor(executor *resilience.Executor) ServiceOption {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithOptions applies the token relevant parts of supplier options.
func WithOptions(o Options) ServiceOption {
	return func(s *Service) {
		gu.MapMerge(o.AdditionalParameters, s.parameters)
		s.propagation = o.TenantPropagation
		if o.Timeout > 0 {
			s.timeout = o.Timeout
		}
	}
}

// NewService builds a token service. A token URI without a path gets
// "/oauth/token" appended.
func NewService(tokenURI string, identity clients.Identity, options ...ServiceOption) (*Service, error) {
	if identity == nil {
		return nil, apperrors.Access(nil, "a client identity is required to retrieve tokens from '%s'", tokenURI)
	}
	u, err := url.Parse(tokenURI)
	if err != nil || u.Host == "" {
		if err == nil {
			err = apperrors.ErrDestinationAccess
		}
		return nil, apperrors.Access(err, "Unable to convert '%s' into an URI.", tokenURI)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultTokenPath
	}

	s := &Service{
		tokenURI:    u,
		identity:    identity,
		onBehalfOf:  oauthmodel.TechnicalUserCurrentTenant,
		propagation: oauthmodel.ZIDHeader,
		parameters:  map[string]string{},
		timeout:     resilience.DefaultTimeout,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.cache == nil {
		s.cache = NewCache(DefaultCacheParameters())
	}
	if s.clients == nil {
		s.clients = NewClientFactory()
	}
	if s.fetcher == nil {
		s.fetcher = NewHTTPFetcher()
	}
	if s.executor == nil {
		s.executor = resilience.NewExecutor()
	}
	if s.resilience == nil {
		cfg := resilience.Of(u.Hostname() + "-" + identity.ID()).
			WithIsolation(resilience.TenantOptional).
			WithTimeout(s.timeout)
		s.resilience = &cfg
	}
	return s, nil
}

func (s *Service) TokenURI() string                  { return s.tokenURI.String() }
func (s *Service) Identity() clients.Identity        { return s.identity }
func (s *Service) OnBehalfOf() oauthmodel.OnBehalfOf { return s.onBehalfOf }

func (s *Service) ResilienceConfiguration() resilience.Configuration {
	return *s.resilience
}

// RetrieveAccessToken returns a token for the tenant and user of ctx, served
// from the cache when possible. It never returns an empty token without an error.
func (s *Service) RetrieveAccessToken(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "token.RetrieveAccessToken")
	defer span.End()
	span.SetAttributes(
		attribute.String("token.uri", s.tokenURI.Host),
		attribute.String("token.client_id", s.identity.ID()),
		attribute.String("token.on_behalf_of", s.onBehalfOf.String()),
	)

	req, tenantID, err := s.prepare(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	key := CacheKey{
		Identity:   clients.Fingerprint(s.identity),
		TokenURI:   req.TokenURL,
		OnBehalfOf: s.onBehalfOf,
		TenantID:   tenantID,
		Subject:    digest(req.Assertion),
		Parameters: parametersDigest(req.Parameters),
	}

	token, err := s.cache.GetOrFetch(ctx, key, func(ctx context.Context) (*xoauth2.Token, error) {
		return resilience.Execute(ctx, s.executor, *s.resilience, func(ctx context.Context) (*xoauth2.Token, error) {
			return s.fetch(ctx, tenantID, req)
		})
	})
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrOAuthToken) {
			err = apperrors.TokenRequestFailed(err, "Failed to resolve access token.")
		}
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return token, nil
}

func (s *Service) fetch(ctx context.Context, tenantID string, req Request) (*xoauth2.Token, error) {
	grant := string(req.Grant)
	start := time.Now()
	defer func() {
		tokenRequestDuration.WithLabelValues(grant).Observe(time.Since(start).Seconds())
	}()

	client, err := s.clients.Client(ctx, tenantID, s.identity)
	if err != nil {
		tokenRequests.WithLabelValues(grant, "error").Inc()
		return nil, apperrors.TokenRequestFailed(err, "Failed to create an HTTP client for the token request.")
	}

	log.Debug().Str("token_uri", req.TokenURL).Str("client_id", s.identity.ID()).Str("tenant", tenantID).Str("grant", grant).Msg("retrieving OAuth2 token")

	token, err := s.fetcher.Fetch(ctx, client, req)
	if err != nil {
		tokenRequests.WithLabelValues(grant, "error").Inc()
		return nil, apperrors.TokenRequestFailed(err, "Failed to resolve access token.")
	}
	if token == nil {
		tokenRequests.WithLabelValues(grant, "empty").Inc()
		return nil, apperrors.OAuthToken(nil, "OAuth2 token request failed")
	}
	if token.AccessToken == "" {
		tokenRequests.WithLabelValues(grant, "empty").Inc()
		return nil, apperrors.OAuthToken(nil, "OAuth2 token request failed: the response did not contain an access token")
	}
	tokenRequests.WithLabelValues(grant, "success").Inc()
	return token, nil
}

// prepare selects the flow for the configured on-behalf-of mode and applies
// tenant propagation. It returns the request and the tenant the token is for.
func (s *Service) prepare(ctx context.Context) (Request, string, error) {
	req := Request{
		TokenURL:   s.tokenURI.String(),
		Grant:      oauth2.ClientCredentialsGrant,
		Identity:   s.identity,
		Parameters: gu.MapCopy(s.parameters),
		Header:     http.Header{},
	}
	if req.Parameters == nil {
		req.Parameters = map[string]string{}
	}

	current, hasTenant := tenants.FromContext(ctx)
	var tenantID string

	switch s.onBehalfOf {
	case oauthmodel.TechnicalUserProvider:
		current = nil
	case oauthmodel.TechnicalUserCurrentTenant:
		if hasTenant {
			tenantID = current.ID
		}
	case oauthmodel.NamedUserCurrentTenant:
		userToken, err := jwt.FromContext(ctx)
		if err != nil {
			return req, "", apperrors.TokenRequestFailed(err, "Failed to get the current user token.")
		}
		switch {
		case !hasTenant:
			log.Warn().Str("tenant", userToken.TenantID()).Msg("a user token was found but the current tenant is undefined, proceeding with the tenant of the token")
		case current.ID != userToken.TenantID():
			return req, "", apperrors.TokenRequestFailed(nil,
				"the user token and the current context have different tenant ids: token '%s', context '%s'", userToken.TenantID(), current.ID)
		}
		tenantID = userToken.TenantID()
		req.Grant = oauth2.JWTBearerGrant
		req.Assertion = userToken.Raw
	default:
		return req, "", apperrors.Unsupported("on-behalf-of mode %s", s.onBehalfOf)
	}

	if tenantID == "" {
		return req, "", nil
	}

	switch s.propagation {
	case oauthmodel.ZIDHeader:
		req.Header.Set(oauth2.ZoneIDHeader, tenantID)
	case oauthmodel.TenantSubdomain:
		if current == nil {
			break
		}
		if current.Subdomain == "" {
			return req, "", apperrors.Access(nil, "Unable to get subdomain of tenant '%s'.", current.ID)
		}
		rewritten, err := replaceSubdomain(s.tokenURI, current.Subdomain)
		if err != nil {
			return req, "", err
		}
		req.TokenURL = rewritten
		req.Parameters["app_tid"] = tenantID
	default:
		return req, "", apperrors.Access(nil, "Unhandled tenant propagation strategy: %s.", s.propagation)
	}
	return req, tenantID, nil
}

// replaceSubdomain swaps the first label of the host of u.
func replaceSubdomain(u *url.URL, subdomain string) (string, error) {
	host := u.Hostname()
	dot := strings.Index(host, ".")
	if dot <= 0 {
		return "", apperrors.Access(nil, "token URI host '%s' has no subdomain to replace", host)
	}
	rewritten := *u
	rewritten.Host = subdomain + host[dot:]
	if port := u.Port(); port != "" {
		rewritten.Host += ":" + port
	}
	return rewritten.String(), nil
}
