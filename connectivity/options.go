package connectivity

import (
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-btp-connectivity/destination"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/resilience"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/jrsteele09/go-btp-connectivity/token"
)

// Options describe which binding a destination is built from and how. Extension
// options are keyed by their Go type, so at most one value per type exists.
type Options struct {
	binding    servicebinding.ServiceBinding
	onBehalfOf oauthmodel.OnBehalfOf
	accessor   servicebinding.Accessor
	extensions map[reflect.Type]any
}

func (o Options) ServiceBinding() servicebinding.ServiceBinding { return o.binding }
func (o Options) OnBehalfOf() oauthmodel.OnBehalfOf             { return o.onBehalfOf }

// Accessor returns the accessor the options were built with, or the
// VCAP_SERVICES accessor.
func (o Options) Accessor() servicebinding.Accessor {
	if o.accessor == nil {
		return servicebinding.NewEnvAccessor()
	}
	return o.accessor
}

// Identifier returns the identifier of the binding, or "unknown".
func (o Options) Identifier() servicebinding.ServiceIdentifier {
	if id, ok := o.binding.Identifier(); ok {
		return id
	}
	return "unknown"
}

// GetOption returns the extension option of type T.
func GetOption[T any](o Options) (T, bool) {
	var zero T
	v, ok := o.extensions[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// OptionsBuilder collects options. Problems are reported together by Build.
type OptionsBuilder struct {
	opts   Options
	result *multierror.Error
}

func ForService(binding servicebinding.ServiceBinding) *OptionsBuilder {
	return &OptionsBuilder{opts: Options{binding: binding, extensions: map[reflect.Type]any{}}}
}

// ForServiceIdentifier selects the single binding of accessor with the given
// identifier.
func ForServiceIdentifier(accessor servicebinding.Accessor, identifier servicebinding.ServiceIdentifier) *OptionsBuilder {
	b := &OptionsBuilder{opts: Options{accessor: accessor, extensions: map[reflect.Type]any{}}}
	bindings, err := servicebinding.ByIdentifier(accessor, identifier)
	switch {
	case err != nil:
		b.result = multierror.Append(b.result, apperrors.ServiceBindingAccess(err, "Failed to read service bindings."))
	case len(bindings) == 0:
		b.result = multierror.Append(b.result, apperrors.ServiceBindingAccess(nil,
			"Could not find any matching service bindings for service identifier '%s'", identifier))
	case len(bindings) > 1:
		b.result = multierror.Append(b.result, apperrors.ServiceBindingAccess(nil,
			"Found %d service bindings for service identifier '%s', expected exactly one", len(bindings), identifier))
	default:
		b.opts.binding = bindings[0]
	}
	return b
}

func (b *OptionsBuilder) OnBehalfOf(behalf oauthmodel.OnBehalfOf) *OptionsBuilder {
	b.opts.onBehalfOf = behalf
	return b
}

// WithAccessor sets the accessor used to look up related bindings, e.g. the
// identity or zero trust identity binding.
func (b *OptionsBuilder) WithAccessor(accessor servicebinding.Accessor) *OptionsBuilder {
	b.opts.accessor = accessor
	return b
}

// WithOption adds extension options. Adding two options of the same type is an error.
func (b *OptionsBuilder) WithOption(options ...any) *OptionsBuilder {
	for _, option := range options {
		if option == nil {
			b.result = multierror.Append(b.result, fmt.Errorf("option must not be nil"))
			continue
		}
		t := reflect.TypeOf(option)
		if existing, ok := b.opts.extensions[t]; ok {
			b.result = multierror.Append(b.result, fmt.Errorf("an option of type %s is already set: %v", t, existing))
			continue
		}
		b.opts.extensions[t] = option
	}
	return b
}

func (b *OptionsBuilder) Build() (Options, error) {
	result := b.result
	_, communication := b.opts.extensions[reflect.TypeOf(IasCommunication{})]
	_, noToken := b.opts.extensions[reflect.TypeOf(IasNoTokenForTechnicalProviderUser{})]
	if communication && noToken {
		result = multierror.Append(result, fmt.Errorf("options %T and %T are mutually exclusive",
			IasCommunication{}, IasNoTokenForTechnicalProviderUser{}))
	}
	if err := result.ErrorOrNil(); err != nil {
		if apperrors.Is(err, apperrors.ErrServiceBindingAccess) {
			return Options{}, err
		}
		return Options{}, apperrors.Access(err, "invalid service binding destination options")
	}
	opts := b.opts
	opts.extensions = make(map[reflect.Type]any, len(b.opts.extensions))
	for k, v := range b.opts.extensions {
		opts.extensions[k] = v
	}
	return opts, nil
}

// ProxyOption turns the resolved destination into a proxy for Destination.
type ProxyOption struct {
	Destination *destination.HttpDestination
}

func DestinationToBeProxied(d *destination.HttpDestination) ProxyOption {
	return ProxyOption{Destination: d}
}

// TokenTimeout overrides the token request timeout.
type TokenTimeout time.Duration

// TokenCacheParameters overrides the token cache parameters.
type TokenCacheParameters token.CacheParameters

// ResilienceOption replaces the resilience configuration of the destination.
type ResilienceOption resilience.Configuration

type BusinessRulesAPI string

const (
	AuthoringAPI BusinessRulesAPI = "AUTHORING_API"
	ExecutionAPI BusinessRulesAPI = "EXECUTION_API"
)

type WorkflowAPI string

const (
	WorkflowRESTAPI  WorkflowAPI = "REST_API"
	WorkflowODataAPI WorkflowAPI = "ODATA_API"
)

type BusinessLoggingAPI string

const (
	BusinessLoggingConfigAPI BusinessLoggingAPI = "CONFIG_API"
	BusinessLoggingReadAPI   BusinessLoggingAPI = "READ_API"
	BusinessLoggingTextAPI   BusinessLoggingAPI = "TEXT_API"
	BusinessLoggingWriteAPI  BusinessLoggingAPI = "WRITE_API"
)

// IasTargetURI is the URI of the system the IAS token is meant for.
type IasTargetURI string

// IasCommunication selects the IAS "resource" the token is requested for.
// Application name and consumer client share this type, so only one of them
// can be set.
type IasCommunication struct {
	ApplicationName  string
	ConsumerClientID string
	ConsumerTenantID string
}

func IasApplicationName(name string) IasCommunication {
	return IasCommunication{ApplicationName: name}
}

// IasConsumerClient requests a token for the consumer client, optionally
// restricted to one consumer tenant.
func IasConsumerClient(clientID string, tenantID ...string) IasCommunication {
	c := IasCommunication{ConsumerClientID: clientID}
	if len(tenantID) > 0 {
		c.ConsumerTenantID = tenantID[0]
	}
	return c
}

// Resource returns the "resource" token parameter.
func (c IasCommunication) Resource() string {
	switch {
	case c.ApplicationName != "":
		return "urn:sap:identity:application:provider:name:" + c.ApplicationName
	case c.ConsumerClientID != "" && c.ConsumerTenantID != "":
		return "urn:sap:identity:consumer:clientid:" + c.ConsumerClientID + ":apptid:" + c.ConsumerTenantID
	case c.ConsumerClientID != "":
		return "urn:sap:identity:consumer:clientid:" + c.ConsumerClientID
	default:
		return ""
	}
}

// IasNoTokenForTechnicalProviderUser authenticates provider level technical
// calls with the client certificate only.
type IasNoTokenForTechnicalProviderUser struct{}
