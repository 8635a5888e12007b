package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/oauth2"
	"github.com/jrsteele09/go-btp-connectivity/oauthmodel"
	"github.com/pkg/errors"
	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Request is one call to a token endpoint.
type Request struct {
	TokenURL   string
	Grant      oauth2.GrantType
	Identity   clients.Identity
	Assertion  string // user token for JWT bearer grants
	Parameters map[string]string
	Header     http.Header
}

// Fetcher performs token requests. A nil token with a nil error is a valid
// return from an implementation and is rejected by the Service.
type Fetcher interface {
	Fetch(ctx context.Context, client *http.Client, req Request) (*xoauth2.Token, error)
}

// HTTPFetcher talks to OAuth2 token endpoints over HTTP.
type HTTPFetcher struct {
	nowFunc func() time.Time
}

var _ Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{nowFunc: time.Now}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, client *http.Client, req Request) (*xoauth2.Token, error) {
	if client == nil {
		client = http.DefaultClient
	}
	switch req.Grant {
	case oauth2.ClientCredentialsGrant:
		return f.clientCredentials(ctx, client, req)
	case oauth2.JWTBearerGrant:
		return f.jwtBearer(ctx, client, req)
	default:
		return nil, fmt.Errorf("[HTTPFetcher Fetch] unsupported grant type %q", req.Grant)
	}
}

func clientSecret(identity clients.Identity) string {
	if cc, ok := identity.(clients.ClientCredentials); ok {
		return cc.Secret
	}
	return ""
}

func (f *HTTPFetcher) clientCredentials(ctx context.Context, client *http.Client, req Request) (*xoauth2.Token, error) {
	params := make(url.Values, len(req.Parameters))
	for k, v := range req.Parameters {
		params.Set(k, v)
	}
	cfg := clientcredentials.Config{
		ClientID:       req.Identity.ID(),
		ClientSecret:   clientSecret(req.Identity),
		TokenURL:       req.TokenURL,
		EndpointParams: params,
		AuthStyle:      xoauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, xoauth2.HTTPClient, withHeader(client, req.Header))
	token, err := cfg.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "client credentials grant failed")
	}
	return token, nil
}

func (f *HTTPFetcher) jwtBearer(ctx context.Context, client *http.Client, req Request) (*xoauth2.Token, error) {
	body := &oauthmodel.JWTBearerRequest{
		GrantType:    oauth2.JWTBearerGrant,
		Assertion:    req.Assertion,
		ClientID:     req.Identity.ID(),
		ClientSecret: clientSecret(req.Identity),
		AppTID:       req.Parameters["app_tid"],
	}
	if err := body.Validate(); err != nil {
		return nil, err
	}
	form, err := body.Form(req.Parameters)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode token request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "jwt bearer grant failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "unable to read token response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("jwt bearer grant failed: http status %d: %s", resp.StatusCode, truncate(string(data), 256))
	}

	var tokenResp oauth2.TokenResponse
	if err := json.Unmarshal(data, &tokenResp); err != nil {
		return nil, errors.Wrap(err, "malformed token response")
	}
	return tokenResp.Token(f.nowFunc()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// withHeader returns a shallow copy of client that adds header to every
// request. The cookie jar stays shared with client.
func withHeader(client *http.Client, header http.Header) *http.Client {
	if len(header) == 0 {
		return client
	}
	c := *client
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = &headerTransport{base: base, header: header}
	return &c
}

type headerTransport struct {
	base   http.RoundTripper
	header http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for name, values := range t.header {
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	return t.base.RoundTrip(req)
}
