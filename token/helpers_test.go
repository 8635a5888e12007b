package token_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/clients"
)

var testIdentity = clients.ClientCredentials{ClientID: "client-id", Secret: "client-secret"}

type recordedRequest struct {
	Path   string
	Header http.Header
	Form   url.Values
}

// tokenServer is a fake token endpoint that counts calls.
type tokenServer struct {
	*httptest.Server
	calls     atomic.Int32
	mu        sync.Mutex
	requests  []recordedRequest
	delay     time.Duration
	setCookie bool
	response  func(n int32, r *http.Request) any
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handle))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) handle(w http.ResponseWriter, r *http.Request) {
	n := ts.calls.Add(1)
	_ = r.ParseForm()

	ts.mu.Lock()
	ts.requests = append(ts.requests, recordedRequest{Path: r.URL.Path, Header: r.Header.Clone(), Form: r.PostForm})
	ts.mu.Unlock()

	if ts.delay > 0 {
		time.Sleep(ts.delay)
	}
	if ts.setCookie {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "tenant-" + r.Header.Get("X-zid"), Path: "/"})
	}

	var body any = map[string]any{
		"access_token": fmt.Sprintf("token-%d-%s", n, r.Header.Get("X-zid")),
		"token_type":   "bearer",
		"expires_in":   3600,
		"scope":        "uaa.resource",
		"jti":          fmt.Sprintf("jti-%d", n),
	}
	if ts.response != nil {
		body = ts.response(n, r)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (ts *tokenServer) tokenURL(path string) string {
	return ts.URL + path
}

func (ts *tokenServer) recorded() []recordedRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recordedRequest(nil), ts.requests...)
}
