package connectivity

import (
	"context"
	"net"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/jrsteele09/go-btp-connectivity/tenants"
	"github.com/jrsteele09/go-btp-connectivity/token"
	"github.com/rs/zerolog/log"
)

// BuiltinResolvers returns the resolvers for the platform services, in the
// order they are consulted.
func BuiltinResolvers() []Resolver {
	return []Resolver{
		ForIdentifier(servicebinding.Destination, newDestinationSupplier),
		ForIdentifier(servicebinding.Connectivity, newConnectivitySupplier),
		ForIdentifier(servicebinding.BusinessRules, newBusinessRulesSupplier),
		ForIdentifier(servicebinding.Workflow, newWorkflowSupplier),
		ForIdentifier(servicebinding.BusinessLogging, newBusinessLoggingSupplier),
		ForIdentifier(servicebinding.AICore, newAICoreSupplier),
		ForIdentifier(servicebinding.IdentityAuthentication, newIdentityAuthenticationSupplier),
		NewResolver("xsuaa", MatchAny(MatchIdentifier(servicebinding.XSUAA), MatchCredential(append(UAAPath, "clientid")...)), newXSUAASupplier),
	}
}

func newXSUAASupplier(o Options) (PropertySupplier, error) {
	return NewDefaultPropertySupplier(o), nil
}

type destinationSupplier struct {
	*DefaultPropertySupplier
}

func newDestinationSupplier(o Options) (PropertySupplier, error) {
	return destinationSupplier{NewDefaultPropertySupplier(o)}, nil
}

func (s destinationSupplier) ServiceURI() (*url.URL, error) {
	return RequireCredential[*url.URL](s.DefaultPropertySupplier, "uri")
}

// connectivitySupplier resolves the on-premise proxy of the connectivity service.
type connectivitySupplier struct {
	*DefaultPropertySupplier
}

func newConnectivitySupplier(o Options) (PropertySupplier, error) {
	return connectivitySupplier{NewDefaultPropertySupplier(o)}, nil
}

func (s connectivitySupplier) ServiceURI() (*url.URL, error) {
	host, err := RequireCredential[string](s.DefaultPropertySupplier, "onpremise_proxy_host")
	if err != nil {
		return nil, err
	}
	// onpremise_proxy_port is deprecated
	port, ok, err := Credential[int](s.DefaultPropertySupplier, "onpremise_proxy_http_port")
	if err != nil {
		return nil, err
	}
	if !ok {
		if port, err = RequireCredential[int](s.DefaultPropertySupplier, "onpremise_proxy_port"); err != nil {
			return nil, err
		}
	}
	return &url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(port))}, nil
}

// endpointURI resolves credentials.endpoints.<name> for the API selected by
// the option of type T.
func endpointURI[T comparable](s *DefaultPropertySupplier, endpoints map[T]string) (*url.URL, error) {
	api, ok := GetOption[T](s.options)
	if !ok {
		return nil, apperrors.Access(nil, "No option given for %T. Please select the API to connect to with the destination options.", api)
	}
	name, ok := endpoints[api]
	if !ok {
		return nil, apperrors.Access(nil, "Unsupported option %v for service '%s'.", api, s.options.Identifier())
	}
	return RequireCredential[*url.URL](s, "endpoints", name)
}

type businessRulesSupplier struct {
	*DefaultPropertySupplier
}

func newBusinessRulesSupplier(o Options) (PropertySupplier, error) {
	return businessRulesSupplier{NewDefaultPropertySupplier(o)}, nil
}

func (s businessRulesSupplier) ServiceURI() (*url.URL, error) {
	return endpointURI(s.DefaultPropertySupplier, map[BusinessRulesAPI]string{
		AuthoringAPI: "rule_repository_url",
		ExecutionAPI: "rule_runtime_url",
	})
}

type workflowSupplier struct {
	*DefaultPropertySupplier
}

func newWorkflowSupplier(o Options) (PropertySupplier, error) {
	return workflowSupplier{NewDefaultPropertySupplier(o)}, nil
}

func (s workflowSupplier) ServiceURI() (*url.URL, error) {
	return endpointURI(s.DefaultPropertySupplier, map[WorkflowAPI]string{
		WorkflowRESTAPI:  "workflow_rest_url",
		WorkflowODataAPI: "workflow_odata_url",
	})
}

type businessLoggingSupplier struct {
	*DefaultPropertySupplier
}

func newBusinessLoggingSupplier(o Options) (PropertySupplier, error) {
	return businessLoggingSupplier{NewDefaultPropertySupplier(o)}, nil
}

// ServiceURI drops the path of the endpoint; clients append the full API path.
func (s businessLoggingSupplier) ServiceURI() (*url.URL, error) {
	u, err := endpointURI(s.DefaultPropertySupplier, map[BusinessLoggingAPI]string{
		BusinessLoggingConfigAPI: "configservice",
		BusinessLoggingReadAPI:   "readservice",
		BusinessLoggingTextAPI:   "textresourceservice",
		BusinessLoggingWriteAPI:  "writeservice",
	})
	if err != nil {
		return nil, err
	}
	return &url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host, Path: "/"}, nil
}

// aiCoreSupplier reads the OAuth2 properties from the credentials root.
type aiCoreSupplier struct {
	*DefaultPropertySupplier
}

func newAICoreSupplier(o Options) (PropertySupplier, error) {
	return aiCoreSupplier{NewDefaultPropertySupplierWithPath(o)}, nil
}

func (s aiCoreSupplier) ServiceURI() (*url.URL, error) {
	return RequireCredential[*url.URL](s.DefaultPropertySupplier, "serviceurls", "AI_API_URL")
}

// identityAuthenticationSupplier handles bindings of the identity
// authentication service (IAS). Tokens are requested per tenant subdomain.
type identityAuthenticationSupplier struct {
	*DefaultPropertySupplier
}

func newIdentityAuthenticationSupplier(o Options) (PropertySupplier, error) {
	return identityAuthenticationSupplier{NewDefaultPropertySupplierWithPath(o)}, nil
}

func (s identityAuthenticationSupplier) ServiceURI() (*url.URL, error) {
	if target, ok := GetOption[IasTargetURI](s.options); ok {
		return Convert[*url.URL](string(target))
	}
	return RequireCredential[*url.URL](s.DefaultPropertySupplier, "url")
}

func (s identityAuthenticationSupplier) TokenURI() (*url.URL, error) {
	u, err := RequireCredential[*url.URL](s.DefaultPropertySupplier, "url")
	if err != nil {
		return nil, err
	}
	return u.JoinPath("oauth2", "token"), nil
}

func (s identityAuthenticationSupplier) OAuth2Options(ctx context.Context) (token.Options, error) {
	opts, err := defaultOAuth2Options(s.options)
	if err != nil {
		return opts, err
	}
	opts.TenantPropagation = oauthmodel.TenantSubdomain

	identity, err := s.ClientIdentity()
	if err != nil {
		return opts, err
	}
	if certIdentity, ok := identity.(clients.CertificateIdentity); ok {
		cert, err := certIdentity.TLSCertificate(ctx)
		if err != nil {
			return opts, apperrors.Access(err, "Failed to load the client certificate of service '%s'.", s.options.Identifier())
		}
		opts.ClientCertificate = &cert
	}

	providerTenant, _, err := Credential[string](s.DefaultPropertySupplier, "app_tid")
	if err != nil {
		return opts, err
	}

	if _, ok := GetOption[IasNoTokenForTechnicalProviderUser](s.options); ok && s.isProviderTechnicalUser(ctx, providerTenant) {
		log.Debug().Str("service", s.options.Identifier().String()).Msg("skipping token retrieval for technical provider user")
		opts.SkipTokenRetrieval = true
		return opts, nil
	}

	if providerTenant != "" {
		opts.AdditionalParameters["app_tid"] = providerTenant
	}
	if communication, ok := GetOption[IasCommunication](s.options); ok {
		if resource := communication.Resource(); resource != "" {
			opts.AdditionalParameters["resource"] = resource
		}
	}
	return opts, nil
}

func (s identityAuthenticationSupplier) isProviderTechnicalUser(ctx context.Context, providerTenant string) bool {
	switch s.options.OnBehalfOf() {
	case oauthmodel.TechnicalUserProvider:
		return true
	case oauthmodel.TechnicalUserCurrentTenant:
		current, ok := tenants.FromContext(ctx)
		return !ok || current.ID == providerTenant
	default:
		return false
	}
}
