package connectivity

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/jrsteele09/go-btp-connectivity/destination"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/rs/zerolog/log"
)

// IdentityAuthenticationLoader resolves bindings of services that
// authenticate through IAS, i.e. bindings with an "authentication-service"
// section pointing to the identity service. The token comes from the
// application's own identity binding; the target is the HTTP endpoint
// declared by the bound service.
type IdentityAuthenticationLoader struct {
	delegate DestinationLoader
}

var _ DestinationLoader = (*IdentityAuthenticationLoader)(nil)

func NewIdentityAuthenticationLoader(delegate DestinationLoader) *IdentityAuthenticationLoader {
	return &IdentityAuthenticationLoader{delegate: delegate}
}

type httpEndpoint struct {
	name                            string
	uri                             string
	requiresTokenForTechnicalAccess bool
	requiresMutualTLS               bool
}

type iasBindingView struct {
	applicationName string
	endpoints       []httpEndpoint
}

func (l *IdentityAuthenticationLoader) TryGetDestination(ctx context.Context, options Options) (*destination.HttpDestination, error) {
	identifier := options.Identifier()
	view, err := iasView(options.ServiceBinding())
	if err != nil {
		return nil, err
	}
	if len(view.endpoints) == 0 {
		return nil, apperrors.Access(nil, "The IAS-based service binding does not contain any HTTP endpoints.")
	}
	if len(view.endpoints) > 1 {
		log.Warn().Str("service", identifier.String()).Int("endpoints", len(view.endpoints)).
			Msg("The IAS-based service binding contains multiple HTTP endpoints. Only the first one will be used.")
	}
	endpoint := view.endpoints[0]
	log.Debug().Str("service", identifier.String()).Str("endpoint", endpoint.name).Bool("mtls", endpoint.requiresMutualTLS).Msg("using IAS endpoint")

	builder := ForServiceIdentifier(options.Accessor(), servicebinding.IdentityAuthentication).
		OnBehalfOf(options.OnBehalfOf()).
		WithOption(IasTargetURI(endpoint.uri))
	if !endpoint.requiresTokenForTechnicalAccess && options.OnBehalfOf() != oauthmodel.NamedUserCurrentTenant {
		builder.WithOption(IasNoTokenForTechnicalProviderUser{})
	} else if view.applicationName != "" {
		builder.WithOption(IasApplicationName(view.applicationName))
	}
	for _, forwarded := range forwardedOptions(options) {
		builder.WithOption(forwarded)
	}

	delegateOptions, err := builder.Build()
	if err != nil {
		return nil, apperrors.Access(err, "Failed to create a destination for service '%s' using IAS OAuth credentials", identifier)
	}
	d, err := l.delegate.TryGetDestination(ctx, delegateOptions)
	if err != nil {
		return nil, apperrors.Access(err, "Failed to create a destination for service '%s' using IAS OAuth credentials", identifier)
	}
	return d, nil
}

// forwardedOptions are the caller options that still apply to the identity binding.
func forwardedOptions(options Options) []any {
	var forwarded []any
	if v, ok := GetOption[TokenTimeout](options); ok {
		forwarded = append(forwarded, v)
	}
	if v, ok := GetOption[TokenCacheParameters](options); ok {
		forwarded = append(forwarded, v)
	}
	if v, ok := GetOption[ResilienceOption](options); ok {
		forwarded = append(forwarded, v)
	}
	if v, ok := GetOption[ProxyOption](options); ok {
		forwarded = append(forwarded, v)
	}
	return forwarded
}

func iasView(binding servicebinding.ServiceBinding) (iasBindingView, error) {
	var view iasBindingView
	raw, _ := binding.Credential("authentication-service")
	authService, ok := raw.(map[string]any)
	if !ok {
		return view, apperrors.NotFound(nil, "The bound service is not backed by the IAS service.")
	}
	if label, ok := authService["service-label"].(string); !ok || !strings.EqualFold(label, "identity") {
		return view, apperrors.NotFound(nil, "The bound service is not backed by the IAS service.")
	}
	view.applicationName, _ = authService["application-name"].(string)

	rawEndpoints, ok := binding.Credential("endpoints")
	if !ok {
		return view, apperrors.Access(nil, "The IAS-based service binding does not contain any HTTP endpoints.")
	}
	endpoints, ok := rawEndpoints.(map[string]any)
	if !ok {
		return view, apperrors.Access(nil, "The IAS-based service binding does not contain a valid 'endpoints' attribute.")
	}

	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, ok := endpoints[name].(map[string]any)
		if !ok {
			return view, apperrors.Access(nil, "The endpoint '%s' of the IAS-based service binding is not a valid object.", name)
		}
		protocol, _ := entry["protocol"].(string)
		if !strings.EqualFold(protocol, "http") {
			continue
		}
		endpoint, err := parseEndpoint(name, entry)
		if err != nil {
			return view, err
		}
		view.endpoints = append(view.endpoints, endpoint)
	}
	return view, nil
}

func parseEndpoint(name string, entry map[string]any) (httpEndpoint, error) {
	endpoint := httpEndpoint{name: name, requiresTokenForTechnicalAccess: true, requiresMutualTLS: true}
	uri, _ := entry["uri"].(string)
	if u, err := url.Parse(uri); err != nil || u.Scheme == "" || u.Host == "" {
		return endpoint, apperrors.Access(err, "The endpoint '%s' of the IAS-based service binding does not contain a valid 'uri' attribute.", name)
	}
	endpoint.uri = uri

	var err error

	if raw, ok := entry["requires-token-for-technical-access"]; ok {
		if endpoint.requiresTokenForTechnicalAccess, err = Convert[bool](raw); err != nil {
			return endpoint, apperrors.Access(err, "The endpoint '%s' of the IAS-based service binding contains an invalid 'requires-token-for-technical-access' attribute.", name)
		}
	}
	if raw, ok := entry["requires-mtls"]; ok {
		if endpoint.requiresMutualTLS, err = Convert[bool](raw); err != nil {
			return endpoint, apperrors.Access(err, "The endpoint '%s' of the IAS-based service binding contains an invalid 'requires-mtls' attribute.", name)
		}
	}
	return endpoint, nil
}
