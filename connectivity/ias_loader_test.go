package connectivity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-btp-connectivity/connectivity"
	"github.com/jrsteele09/go-btp-connectivity/destination"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/stretchr/testify/require"
)

// recordingLoader captures the options it is called with.
type recordingLoader struct {
	options []connectivity.Options
	err     error
}

func (r *recordingLoader) TryGetDestination(_ context.Context, o connectivity.Options) (*destination.HttpDestination, error) {
	r.options = append(r.options, o)
	if r.err != nil {
		return nil, r.err
	}
	return destination.NewBuilder("https://delegate.example.com").Build()
}

var iasAccessor = servicebinding.StaticAccessor{iasBinding(nil)}

func iasBackedBinding(credentials map[string]any) servicebinding.ServiceBinding {
	if _, ok := credentials["authentication-service"]; !ok {
		credentials["authentication-service"] = map[string]any{
			"service-label":    "IDENTITY",
			"application-name": "my-app",
		}
	}
	return servicebinding.New("bound-service", credentials, servicebinding.WithName("bound"))
}

func httpEndpoint(uri string, extra ...any) map[string]any {
	e := map[string]any{"protocol": "http", "uri": uri}
	for i := 0; i+1 < len(extra); i += 2 {
		e[extra[i].(string)] = extra[i+1]
	}
	return e
}

func loadIAS(t *testing.T, delegate connectivity.DestinationLoader, behalf oauthmodel.OnBehalfOf, binding servicebinding.ServiceBinding) error {
	t.Helper()
	o, err := connectivity.ForService(binding).OnBehalfOf(behalf).WithAccessor(iasAccessor).Build()
	require.NoError(t, err)
	_, err = connectivity.NewIdentityAuthenticationLoader(delegate).TryGetDestination(context.Background(), o)
	return err
}

func TestIASLoaderDelegatesWithTargetEndpoint(t *testing.T) {
	delegate := &recordingLoader{}
	binding := iasBackedBinding(map[string]any{
		"endpoints": map[string]any{
			"api":  httpEndpoint("https://api.bound.example.com"),
			"grpc": map[string]any{"protocol": "grpc", "uri": "grpc://bound.example.com"},
		},
	})
	require.NoError(t, loadIAS(t, delegate, oauthmodel.TechnicalUserCurrentTenant, binding))

	require.Len(t, delegate.options, 1)
	o := delegate.options[0]
	id, _ := o.ServiceBinding().Identifier()
	require.Equal(t, servicebinding.IdentityAuthentication, id)
	require.Equal(t, oauthmodel.TechnicalUserCurrentTenant, o.OnBehalfOf())

	target, ok := connectivity.GetOption[connectivity.IasTargetURI](o)
	require.True(t, ok)
	require.Equal(t, connectivity.IasTargetURI("https://api.bound.example.com"), target)

	communication, ok := connectivity.GetOption[connectivity.IasCommunication](o)
	require.True(t, ok)
	require.Equal(t, "my-app", communication.ApplicationName)

	_, ok = connectivity.GetOption[connectivity.IasNoTokenForTechnicalProviderUser](o)
	require.False(t, ok)
}

func TestIASLoaderMutualTLSOnlyEndpoint(t *testing.T) {
	binding := func() servicebinding.ServiceBinding {
		return iasBackedBinding(map[string]any{
			"endpoints": map[string]any{
				"api": httpEndpoint("https://api.bound.example.com", "requires-token-for-technical-access", false),
			},
		})
	}

	delegate := &recordingLoader{}
	require.NoError(t, loadIAS(t, delegate, oauthmodel.TechnicalUserProvider, binding()))
	_, ok := connectivity.GetOption[connectivity.IasNoTokenForTechnicalProviderUser](delegate.options[0])
	require.True(t, ok)
	_, ok = connectivity.GetOption[connectivity.IasCommunication](delegate.options[0])
	require.False(t, ok)

	delegate = &recordingLoader{}
	require.NoError(t, loadIAS(t, delegate, oauthmodel.NamedUserCurrentTenant, binding()))
	_, ok = connectivity.GetOption[connectivity.IasNoTokenForTechnicalProviderUser](delegate.options[0])
	require.False(t, ok)
	communication, ok := connectivity.GetOption[connectivity.IasCommunication](delegate.options[0])
	require.True(t, ok)
	require.Equal(t, "my-app", communication.ApplicationName)
}

func TestIASLoaderUsesFirstOfSeveralEndpoints(t *testing.T) {
	delegate := &recordingLoader{}
	binding := iasBackedBinding(map[string]any{
		"endpoints": map[string]any{
			"b-api": httpEndpoint("https://b.bound.example.com"),
			"a-api": httpEndpoint("https://a.bound.example.com"),
		},
	})
	require.NoError(t, loadIAS(t, delegate, oauthmodel.TechnicalUserCurrentTenant, binding))
	target, _ := connectivity.GetOption[connectivity.IasTargetURI](delegate.options[0])
	require.Equal(t, connectivity.IasTargetURI("https://a.bound.example.com"), target)
}

func TestIASLoaderRejectsBindings(t *testing.T) {
	tests := []struct {
		name        string
		credentials map[string]any
		kind        error
		message     string
	}{
		{
			name:        "no authentication service",
			credentials: map[string]any{"authentication-service": "identity"},
			kind:        apperrors.ErrDestinationNotFound,
			message:     "not backed by the IAS service",
		},
		{
			name:        "other authentication service",
			credentials: map[string]any{"authentication-service": map[string]any{"service-label": "xsuaa"}},
			kind:        apperrors.ErrDestinationNotFound,
			message:     "not backed by the IAS service",
		},
		{
			name:        "no endpoints",
			credentials: map[string]any{},
			kind:        apperrors.ErrDestinationAccess,
			message:     "does not contain any HTTP endpoints",
		},
		{
			name:        "endpoints is not an object",
			credentials: map[string]any{"endpoints": []any{"https://api.bound.example.com"}},
			kind:        apperrors.ErrDestinationAccess,
			message:     "valid 'endpoints' attribute",
		},
		{
			name:        "endpoint is not an object",
			credentials: map[string]any{"endpoints": map[string]any{"api": "https://api.bound.example.com"}},
			kind:        apperrors.ErrDestinationAccess,
			message:     "is not a valid object",
		},
		{
			name:        "no http endpoint",
			credentials: map[string]any{"endpoints": map[string]any{"api": map[string]any{"uri": "https://api.bound.example.com"}}},
			kind:        apperrors.ErrDestinationAccess,
			message:     "does not contain any HTTP endpoints",
		},
		{
			name:        "invalid uri",
			credentials: map[string]any{"endpoints": map[string]any{"api": httpEndpoint("not a uri")}},
			kind:        apperrors.ErrDestinationAccess,
			message:     "valid 'uri' attribute",
		},
		{
			name: "invalid technical access flag",
			credentials: map[string]any{"endpoints": map[string]any{
				"api": httpEndpoint("https://api.bound.example.com", "requires-token-for-technical-access", "sometimes"),
			}},
			kind:    apperrors.ErrDestinationAccess,
			message: "requires-token-for-technical-access",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delegate := &recordingLoader{}
			err := loadIAS(t, delegate, oauthmodel.TechnicalUserCurrentTenant, iasBackedBinding(tt.credentials))
			require.ErrorIs(t, err, tt.kind)
			require.Contains(t, err.Error(), tt.message)
			require.Empty(t, delegate.options)
		})
	}
}

func TestIASLoaderWrapsDelegateFailure(t *testing.T) {
	delegate := &recordingLoader{err: errors.New("token endpoint down")}
	binding := iasBackedBinding(map[string]any{
		"endpoints": map[string]any{"api": httpEndpoint("https://api.bound.example.com")},
	})
	err := loadIAS(t, delegate, oauthmodel.TechnicalUserCurrentTenant, binding)
	require.ErrorIs(t, err, apperrors.ErrDestinationAccess)
	require.Contains(t, err.Error(), "Failed to create a destination for service 'bound-service' using IAS OAuth credentials")
	require.Contains(t, err.Error(), "token endpoint down")
}

func TestIASLoaderWithoutIdentityBinding(t *testing.T) {
	binding := iasBackedBinding(map[string]any{
		"endpoints": map[string]any{"api": httpEndpoint("https://api.bound.example.com")},
	})
	o, err := connectivity.ForService(binding).WithAccessor(servicebinding.StaticAccessor{}).Build()
	require.NoError(t, err)
	_, err = connectivity.NewIdentityAuthenticationLoader(&recordingLoader{}).TryGetDestination(context.Background(), o)
	require.ErrorIs(t, err, apperrors.ErrServiceBindingAccess)
}
