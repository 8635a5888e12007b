package token

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/token/keys"
	"github.com/pkg/errors"
)

// HTTPClientFactory returns the client used for token requests of one tenant
// and identity. Clients must not share connection state such as cookies
// across tenants.
type HTTPClientFactory interface {
	Client(ctx context.Context, tenantID string, identity clients.Identity) (*http.Client, error)
}

// ClientFactory keeps one *http.Client per (tenant, identity), each with its
// own cookie jar.
type ClientFactory struct {
	base    http.RoundTripper
	mu      sync.Mutex
	clients *expirable.LRU[string, *http.Client]
}

var _ HTTPClientFactory = (*ClientFactory)(nil)

type ClientFactoryOption func(*ClientFactory)

// WithBaseTransport sets the transport cloned for every client. Certificate
// identities require an *http.Transport.
func WithBaseTransport(rt http.RoundTripper) ClientFactoryOption {
	return func(f *ClientFactory) {
		f.base = rt
	}
}

func NewClientFactory(options ...ClientFactoryOption) *ClientFactory {
	f := &ClientFactory{
		base:    http.DefaultTransport,
		clients: expirable.NewLRU[string, *http.Client](1000, nil, time.Hour),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Client returns the pooled client for tenantID and identity. Certificates are
// loaded without holding the pool lock, so a slow certificate source only
// delays callers for its own identity.
func (f *ClientFactory) Client(ctx context.Context, tenantID string, identity clients.Identity) (*http.Client, error) {
	key := tenantID + "|" + clients.Fingerprint(identity)

	f.mu.Lock()
	client, ok := f.clients.Get(key)
	f.mu.Unlock()
	if ok {
		return client, nil
	}

	client, err := f.newClient(ctx, identity)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.clients.Get(key); ok {
		return existing, nil
	}
	f.clients.Add(key, client)
	return client, nil
}

func (f *ClientFactory) newClient(ctx context.Context, identity clients.Identity) (*http.Client, error) {
	transport := f.base
	if certIdentity, ok := identity.(clients.CertificateIdentity); ok {
		cert, err := certIdentity.TLSCertificate(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load client certificate for %s", identity.ID())
		}
		mtls, err := keys.MutualTLSTransport(f.base, cert)
		if err != nil {
			return nil, err
		}
		transport = mtls
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}
	return &http.Client{Transport: transport, Jar: jar}, nil
}

// Len is the number of pooled clients.
func (f *ClientFactory) Len() int {
	return f.clients.Len()
}
