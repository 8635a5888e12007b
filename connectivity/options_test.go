package connectivity_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/connectivity"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/stretchr/testify/require"
)

type failingAccessor struct{}

func (failingAccessor) ServiceBindings() ([]servicebinding.ServiceBinding, error) {
	return nil, errors.New("no environment")
}

func TestForServiceIdentifier(t *testing.T) {
	accessor := servicebinding.StaticAccessor{
		servicebinding.New(servicebinding.XSUAA, nil, servicebinding.WithName("one")),
		servicebinding.New(servicebinding.Destination, nil, servicebinding.WithName("dest-1")),
		servicebinding.New(servicebinding.Destination, nil, servicebinding.WithName("dest-2")),
	}

	o, err := connectivity.ForServiceIdentifier(accessor, servicebinding.XSUAA).Build()
	require.NoError(t, err)
	require.Equal(t, "one", o.ServiceBinding().Name())
	require.Equal(t, accessor, o.Accessor())

	_, err = connectivity.ForServiceIdentifier(accessor, servicebinding.Workflow).Build()
	require.ErrorIs(t, err, apperrors.ErrServiceBindingAccess)
	require.Contains(t, err.Error(), "Could not find any matching service bindings for service identifier 'workflow'")

	_, err = connectivity.ForServiceIdentifier(accessor, servicebinding.Destination).Build()
	require.ErrorIs(t, err, apperrors.ErrServiceBindingAccess)
	require.Contains(t, err.Error(), "Found 2 service bindings")

	_, err = connectivity.ForServiceIdentifier(failingAccessor{}, servicebinding.XSUAA).Build()
	require.ErrorIs(t, err, apperrors.ErrServiceBindingAccess)
}

func TestOptionsIdentifierFallback(t *testing.T) {
	o := buildOptions(t, servicebinding.New("", nil))
	require.Equal(t, servicebinding.ServiceIdentifier("unknown"), o.Identifier())
}

func TestOptionsAreKeyedByType(t *testing.T) {
	o := buildOptions(t, servicebinding.New(servicebinding.Workflow, nil),
		connectivity.WorkflowRESTAPI, connectivity.TokenTimeout(5*time.Second))

	api, ok := connectivity.GetOption[connectivity.WorkflowAPI](o)
	require.True(t, ok)
	require.Equal(t, connectivity.WorkflowRESTAPI, api)

	timeout, ok := connectivity.GetOption[connectivity.TokenTimeout](o)
	require.True(t, ok)
	require.Equal(t, connectivity.TokenTimeout(5*time.Second), timeout)

	_, ok = connectivity.GetOption[connectivity.BusinessRulesAPI](o)
	require.False(t, ok)

	_, err := connectivity.ForService(servicebinding.New(servicebinding.Workflow, nil)).
		WithOption(connectivity.WorkflowRESTAPI, connectivity.WorkflowODataAPI, nil).
		Build()
	require.ErrorIs(t, err, apperrors.ErrDestinationAccess)
	require.Contains(t, err.Error(), "already set")
	require.Contains(t, err.Error(), "must not be nil")
}

func TestTokenTimeoutReachesOAuth2Options(t *testing.T) {
	o := buildOptions(t, xsuaaBinding("https://api.example.com", "https://auth.example.com"), connectivity.TokenTimeout(3*time.Second))
	opts, err := connectivity.NewDefaultPropertySupplier(o).OAuth2Options(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, opts.Timeout)
}

func TestGenericOption(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want any
	}{
		{name: "BusinessRulesOptions", args: []any{"AUTHORING_API"}, want: connectivity.AuthoringAPI},
		{name: "WorkflowOptions", args: []any{"ODATA_API", "ignored"}, want: connectivity.WorkflowODataAPI},
		{name: "BusinessLoggingOptions", args: []any{"READ_API"}, want: connectivity.BusinessLoggingReadAPI},
		{name: "IasOptions", args: []any{"withTargetUri", "https://target.example.com"}, want: connectivity.IasTargetURI("https://target.example.com")},
		{name: "IasOptions", args: []any{"withTargetUri", &url.URL{Scheme: "https", Host: "target.example.com"}}, want: connectivity.IasTargetURI("https://target.example.com")},
		{name: "IasOptions", args: []any{"withApplicationName", "my-app"}, want: connectivity.IasApplicationName("my-app")},
		{name: "IasOptions", args: []any{"withConsumerClient", "client"}, want: connectivity.IasConsumerClient("client")},
		{name: "IasOptions", args: []any{"withConsumerClient", "client", "tenant"}, want: connectivity.IasConsumerClient("client", "tenant")},
		{name: "IasOptions", args: []any{"withoutTokenForTechnicalProviderUser"}, want: connectivity.IasNoTokenForTechnicalProviderUser{}},
	}
	for _, tt := range tests {
		got, err := connectivity.GenericOption(tt.name, tt.args...)
		require.NoError(t, err, "%s %v", tt.name, tt.args)
		require.Equal(t, tt.want, got)
	}
}

func TestGenericOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		args []any
	}{
		{name: "BusinessRulesOptions"},
		{name: "BusinessRulesOptions", args: []any{"authoring_api"}},
		{name: "WorkflowOptions", args: []any{42}},
		{name: "IasOptions", args: []any{"withApplicationName"}},
		{name: "IasOptions", args: []any{"withConsumerClient", "client", 7}},
		{name: "IasOptions", args: []any{"withMagic"}},
		{name: "UnknownOptions", args: []any{"x"}},
	}
	for _, tt := range tests {
		_, err := connectivity.GenericOption(tt.name, tt.args...)
		require.Error(t, err, "%s %v", tt.name, tt.args)
	}
}

func TestConvert(t *testing.T) {
	i, err := connectivity.Convert[int](float64(8080))
	require.NoError(t, err)
	require.Equal(t, 8080, i)

	i, err = connectivity.Convert[int](json.Number("443"))
	require.NoError(t, err)
	require.Equal(t, 443, i)

	_, err = connectivity.Convert[int](1.5)
	require.ErrorIs(t, err, apperrors.ErrDestinationAccess)

	b, err := connectivity.Convert[bool]("false")
	require.NoError(t, err)
	require.False(t, b)

	_, err = connectivity.Convert[bool](1)
	require.ErrorIs(t, err, apperrors.ErrDestinationAccess)

	u, err := connectivity.Convert[*url.URL]("https://api.example.com/path")
	require.NoError(t, err)
	require.Equal(t, "api.example.com", u.Host)

	_, err = connectivity.Convert[*url.URL](42)
	require.ErrorIs(t, err, apperrors.ErrDestinationAccess)
	require.Contains(t, err.Error(), "into an URI")

	ct, err := connectivity.Convert[clients.CredentialType]("binding_secret")
	require.NoError(t, err)
	require.Equal(t, clients.BindingSecret, ct)

	s, err := connectivity.Convert[string](42)
	require.NoError(t, err)
	require.Equal(t, "42", s)

	_, err = connectivity.Convert[time.Duration]("1s")
	require.ErrorIs(t, err, apperrors.ErrDestinationAccess)
}
