package destination_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-btp-connectivity/destination"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/resilience"
	"github.com/stretchr/testify/require"
)

func countingProvider(name string, calls *atomic.Int32) destination.HeaderProvider {
	return destination.HeaderProviderFunc(func(context.Context, *destination.HttpDestination) ([]destination.Header, error) {
		n := calls.Add(1)
		return []destination.Header{{Name: name, Value: string(rune('0' + n))}}, nil
	})
}

func TestBuildReportsEveryProblem(t *testing.T) {
	_, err := destination.NewBuilder("").
		Proxy("not absolute", destination.OnPremise).
		Header("", "value").
		HeaderProvider(nil).
		Build()
	require.ErrorIs(t, err, apperrors.ErrDestinationAccess)
	require.Contains(t, err.Error(), "uri is required")
	require.Contains(t, err.Error(), "proxy uri")
	require.Contains(t, err.Error(), "header 0 has no name")
	require.Contains(t, err.Error(), "header provider 0 is nil")
}

func TestBuildDefaults(t *testing.T) {
	d, err := destination.NewBuilder("https://api.example.com/v1").Build()
	require.NoError(t, err)
	require.Equal(t, "api.example.com", d.Name())
	require.Equal(t, destination.Internet, d.ProxyType())
	require.Nil(t, d.ProxyURL())
	_, ok := d.Resilience()
	require.False(t, ok)
}

func TestHeadersAreComputedOnEveryCall(t *testing.T) {
	var calls atomic.Int32
	d, err := destination.NewBuilder("https://api.example.com").
		Header("X-Static", "static").
		Property(destination.PropertySAPClient, "100").
		Property("other", "ignored").
		HeaderProvider(countingProvider("Authorization", &calls)).
		Build()
	require.NoError(t, err)

	first, err := d.Headers(context.Background())
	require.NoError(t, err)
	second, err := d.Headers(context.Background())
	require.NoError(t, err)

	require.Equal(t, []destination.Header{
		{Name: "X-Static", Value: "static"},
		{Name: "sap-client", Value: "100"},
		{Name: "Authorization", Value: "1"},
	}, first)
	require.Equal(t, "2", second[2].Value)
}

func TestHeaderProviderErrorIsReturned(t *testing.T) {
	boom := errors.New("no token")
	d, err := destination.NewBuilder("https://api.example.com").
		HeaderProvider(destination.HeaderProviderFunc(func(context.Context, *destination.HttpDestination) ([]destination.Header, error) {
			return nil, boom
		})).
		Build()
	require.NoError(t, err)

	_, err = d.Headers(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestFromDestinationKeepsBase(t *testing.T) {
	var calls atomic.Int32
	base, err := destination.NewBuilder("http://backend.internal:8080").
		Name("backend").
		Header("X-Custom", "custom").
		Property(destination.PropertySAPLanguage, "en").
		HeaderProvider(countingProvider("Authorization", &calls)).
		Build()
	require.NoError(t, err)

	proxied, err := destination.FromDestination(base).
		Proxy("http://proxy.internal:20003", destination.OnPremise).
		Header("Proxy-Authorization", "Bearer proxy").
		Build()
	require.NoError(t, err)

	require.Equal(t, base.URI(), proxied.URI())
	require.Equal(t, "backend", proxied.Name())
	require.Equal(t, destination.OnPremise, proxied.ProxyType())
	require.Equal(t, "proxy.internal:20003", proxied.ProxyURL().Host)
	require.Equal(t, base.Properties(), proxied.Properties())

	h, err := proxied.HTTPHeader(context.Background())
	require.NoError(t, err)
	require.Equal(t, "custom", h.Get("X-Custom"))
	require.Equal(t, "en", h.Get("sap-language"))
	require.Equal(t, "Bearer proxy", h.Get("Proxy-Authorization"))
	require.NotEmpty(t, h.Get("Authorization"))

	baseHeaders, err := base.HTTPHeader(context.Background())
	require.NoError(t, err)
	require.Empty(t, baseHeaders.Get("Proxy-Authorization"))
}

func TestClientAppliesHeaders(t *testing.T) {
	var received http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Clone()
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	var calls atomic.Int32
	d, err := destination.NewBuilder(srv.URL + "/api/").
		HeaderProvider(countingProvider("Authorization", &calls)).
		Resilience(resilience.Of("backend")).
		Build()
	require.NoError(t, err)

	client, err := d.Client(destination.WithExecutor(resilience.NewExecutor()))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "items", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "1", received.Get("Authorization"))
	require.NotEmpty(t, received.Get(destination.CorrelationIDHeader))
}

func TestClientRoutesThroughProxy(t *testing.T) {
	var proxyAuth, requestURI string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyAuth = r.Header.Get("Proxy-Authorization")
		requestURI = r.RequestURI
		w.WriteHeader(http.StatusNoContent)
	}))
	defer proxy.Close()

	d, err := destination.NewBuilder("http://backend.internal/api").
		Proxy(proxy.URL, destination.OnPremise).
		Header("Proxy-Authorization", "Bearer proxy-token").
		Build()
	require.NoError(t, err)

	client, err := d.Client()
	require.NoError(t, err)
	resp, err := client.Get("http://backend.internal/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "Bearer proxy-token", proxyAuth)
	require.Equal(t, "http://backend.internal/api/items", requestURI)
}
