package destination

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-btp-connectivity/resilience"
	"github.com/jrsteele09/go-btp-connectivity/token/keys"
)

const (
	CorrelationIDHeader      = "X-CorrelationID"
	proxyAuthorizationHeader = "Proxy-Authorization"
)

// Transport sends requests to a destination. Relative request URLs are
// resolved against the destination URI and the destination headers are
// applied on each round trip.
type Transport struct {
	dest     *HttpDestination
	base     http.RoundTripper
	executor *resilience.Executor
}

var _ http.RoundTripper = (*Transport)(nil)

type ClientOption func(*clientOptions)

type clientOptions struct {
	base     *http.Transport
	executor *resilience.Executor
}

// WithTransport sets the transport that is cloned for the destination.
func WithTransport(base *http.Transport) ClientOption {
	return func(o *clientOptions) {
		o.base = base
	}
}

// WithExecutor runs each round trip inside the destination's resilience
// boundary. Destinations without resilience configuration ignore it.
func WithExecutor(executor *resilience.Executor) ClientOption {
	return func(o *clientOptions) {
		o.executor = executor
	}
}

// Client returns an *http.Client for d. Proxy and client certificate of the
// destination are configured on a clone of the base transport.
func (d *HttpDestination) Client(options ...ClientOption) (*http.Client, error) {
	o := clientOptions{}
	for _, opt := range options {
		opt(&o)
	}
	base := o.base
	if base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}

	transport := base.Clone()
	if d.clientCertificate != nil {
		mtls, err := keys.MutualTLSTransport(base, *d.clientCertificate)
		if err != nil {
			return nil, err
		}
		transport = mtls
	}
	if d.proxyURL != nil {
		transport.Proxy = http.ProxyURL(d.proxyURL)
		transport.GetProxyConnectHeader = d.proxyConnectHeader
	}

	client := &http.Client{Transport: &Transport{dest: d, base: transport, executor: o.executor}}
	if cfg, ok := d.Resilience(); ok {
		client.Timeout = cfg.Timeout
	}
	return client, nil
}

// proxyConnectHeader supplies Proxy-Authorization for CONNECT tunnels.
func (d *HttpDestination) proxyConnectHeader(ctx context.Context, _ *url.URL, _ string) (http.Header, error) {
	h, err := d.HTTPHeader(ctx)
	if err != nil {
		return nil, err
	}
	connect := http.Header{}
	if v := h.Get(proxyAuthorizationHeader); v != "" {
		connect.Set(proxyAuthorizationHeader, v)
	}
	return connect, nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	headers, err := t.dest.Headers(ctx)
	if err != nil {
		return nil, err
	}

	out := req.Clone(ctx)
	if !out.URL.IsAbs() {
		out.URL = t.dest.uri.ResolveReference(out.URL)
		out.Host = ""
	}
	for _, h := range headers {
		if h.Name == proxyAuthorizationHeader && (t.dest.proxyURL == nil || out.URL.Scheme == "https") {
			// tunnelled requests get it on CONNECT only
			continue
		}
		out.Header.Set(h.Name, h.Value)
	}
	if out.Header.Get(CorrelationIDHeader) == "" {
		out.Header.Set(CorrelationIDHeader, uuid.NewString())
	}

	cfg, ok := t.dest.Resilience()
	if !ok || t.executor == nil {
		return t.base.RoundTrip(out)
	}
	// the client enforces the timeout so the response body outlives this call
	return resilience.Execute(ctx, t.executor, cfg.WithTimeout(0), func(context.Context) (*http.Response, error) {
		return t.base.RoundTrip(out)
	})
}
