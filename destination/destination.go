// Package destination holds resolved outbound HTTP targets. Header values are
// computed on every call, so tokens refreshed behind a HeaderProvider are
// picked up without rebuilding the destination.
package destination

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-btp-connectivity/resilience"
	"github.com/muhlemmer/gu"
	"github.com/pkg/errors"
)

// Properties that are sent as headers of the same name.
const (
	PropertySAPClient   = "sap-client"
	PropertySAPLanguage = "sap-language"
)

type ProxyType string

const (
	Internet  ProxyType = "Internet"
	OnPremise ProxyType = "OnPremise"
)

type Header struct {
	Name  string
	Value string
}

// HeaderProvider computes headers for one outbound call.
type HeaderProvider interface {
	Headers(ctx context.Context, d *HttpDestination) ([]Header, error)
}

type HeaderProviderFunc func(ctx context.Context, d *HttpDestination) ([]Header, error)

func (f HeaderProviderFunc) Headers(ctx context.Context, d *HttpDestination) ([]Header, error) {
	return f(ctx, d)
}

// HttpDestination is immutable once built.
type HttpDestination struct {
	name              string
	uri               *url.URL
	proxyURL          *url.URL
	proxyType         ProxyType
	headers           []Header
	providers         []HeaderProvider
	properties        map[string]string
	clientCertificate *tls.Certificate
	resilience        *resilience.Configuration
}

func (d *HttpDestination) Name() string { return d.name }

func (d *HttpDestination) URI() *url.URL {
	u := *d.uri
	return &u
}

// ProxyURL is nil for destinations that are reached directly.
func (d *HttpDestination) ProxyURL() *url.URL {
	if d.proxyURL == nil {
		return nil
	}
	u := *d.proxyURL
	return &u
}

func (d *HttpDestination) ProxyType() ProxyType { return d.proxyType }

func (d *HttpDestination) Property(name string) (string, bool) {
	v, ok := d.properties[name]
	return v, ok
}

func (d *HttpDestination) Properties() map[string]string {
	return gu.MapCopy(d.properties)
}

func (d *HttpDestination) ClientCertificate() *tls.Certificate { return d.clientCertificate }

// Resilience returns the resilience configuration attached to the destination, if any.
func (d *HttpDestination) Resilience() (resilience.Configuration, bool) {
	if d.resilience == nil {
		return resilience.Configuration{}, false
	}
	return *d.resilience, true
}

// Headers returns the static headers, the header properties and the output of
// every header provider, in that order. Providers run on every call.
func (d *HttpDestination) Headers(ctx context.Context) ([]Header, error) {
	headers := append([]Header(nil), d.headers...)
	for _, name := range []string{PropertySAPClient, PropertySAPLanguage} {
		if v, ok := d.properties[name]; ok && v != "" {
			headers = append(headers, Header{Name: name, Value: v})
		}
	}
	for _, p := range d.providers {
		provided, err := p.Headers(ctx, d)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compute headers for destination %s", d.name)
		}
		headers = append(headers, provided...)
	}
	return headers, nil
}

// HTTPHeader is Headers as an http.Header.
func (d *HttpDestination) HTTPHeader(ctx context.Context) (http.Header, error) {
	headers, err := d.Headers(ctx)
	if err != nil {
		return nil, err
	}
	h := make(http.Header, len(headers))
	for _, header := range headers {
		h.Add(header.Name, header.Value)
	}
	return h, nil
}
