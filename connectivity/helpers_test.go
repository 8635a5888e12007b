package connectivity_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-btp-connectivity/connectivity"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/stretchr/testify/require"
)

// tokenEndpoint is a fake OAuth2 token endpoint issuing "token-<n>".
type tokenEndpoint struct {
	*httptest.Server
	calls atomic.Int32
}

func newTokenEndpoint(t *testing.T) *tokenEndpoint {
	t.Helper()
	te := &tokenEndpoint{}
	te.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := te.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": fmt.Sprintf("token-%d", n),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(te.Close)
	return te
}

// targetServer records the headers of every request it receives.
type targetServer struct {
	*httptest.Server
	mu      sync.Mutex
	headers []http.Header
}

func newTargetServer(t *testing.T) *targetServer {
	t.Helper()
	ts := &targetServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.headers = append(ts.headers, r.Header.Clone())
		ts.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *targetServer) received() []http.Header {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]http.Header(nil), ts.headers...)
}

func uaa(tokenURL string) map[string]any {
	return map[string]any{
		"clientid":     "client-id",
		"clientsecret": "client-secret",
		"url":          tokenURL,
	}
}

func xsuaaBinding(serviceURL, tokenURL string) servicebinding.ServiceBinding {
	return servicebinding.New(servicebinding.XSUAA, map[string]any{
		"url": serviceURL,
		"uaa": uaa(tokenURL),
	}, servicebinding.WithName("my-xsuaa"))
}

func buildOptions(t *testing.T, binding servicebinding.ServiceBinding, options ...any) connectivity.Options {
	t.Helper()
	o, err := connectivity.ForService(binding).WithOption(options...).Build()
	require.NoError(t, err)
	return o
}
