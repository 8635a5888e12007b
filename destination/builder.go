package destination

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/resilience"
	"github.com/muhlemmer/gu"
)

// Builder assembles an HttpDestination. Setters may be called in any order;
// all problems are reported together by Build.
type Builder struct {
	name              string
	uri               string
	proxyURI          string
	proxyType         ProxyType
	headers           []Header
	providers         []HeaderProvider
	properties        map[string]string
	clientCertificate *tls.Certificate
	resilience        *resilience.Configuration
}

func NewBuilder(uri string) *Builder {
	return &Builder{uri: uri, properties: map[string]string{}}
}

// FromDestination starts from a copy of base: its name, URI, proxy, headers,
// providers, properties and certificate are kept.
func FromDestination(base *HttpDestination) *Builder {
	b := &Builder{
		name:              base.name,
		uri:               base.uri.String(),
		proxyType:         base.proxyType,
		headers:           append([]Header(nil), base.headers...),
		providers:         append([]HeaderProvider(nil), base.providers...),
		properties:        gu.MapCopy(base.properties),
		clientCertificate: base.clientCertificate,
		resilience:        base.resilience,
	}
	if base.proxyURL != nil {
		b.proxyURI = base.proxyURL.String()
	}
	if b.properties == nil {
		b.properties = map[string]string{}
	}
	return b
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) URI(uri string) *Builder {
	b.uri = uri
	return b
}

func (b *Builder) Header(name, value string) *Builder {
	b.headers = append(b.headers, Header{Name: name, Value: value})
	return b
}

func (b *Builder) HeaderProvider(p HeaderProvider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

func (b *Builder) Property(name, value string) *Builder {
	b.properties[name] = value
	return b
}

func (b *Builder) Proxy(uri string, proxyType ProxyType) *Builder {
	b.proxyURI = uri
	b.proxyType = proxyType
	return b
}

func (b *Builder) ClientCertificate(cert *tls.Certificate) *Builder {
	b.clientCertificate = cert
	return b
}

func (b *Builder) Resilience(cfg resilience.Configuration) *Builder {
	b.resilience = &cfg
	return b
}

// Build validates the collected values and returns the destination. The error
// lists every invalid field.
func (b *Builder) Build() (*HttpDestination, error) {
	var result *multierror.Error

	uri, err := parseAbsolute("uri", b.uri)
	if err != nil {
		result = multierror.Append(result, err)
	}

	var proxy *url.URL
	if b.proxyURI != "" {
		if proxy, err = parseAbsolute("proxy uri", b.proxyURI); err != nil {
			result = multierror.Append(result, err)
		}
	}

	for i, h := range b.headers {
		if strings.TrimSpace(h.Name) == "" {
			result = multierror.Append(result, fmt.Errorf("header %d has no name", i))
		}
	}
	for i, p := range b.providers {
		if p == nil {
			result = multierror.Append(result, fmt.Errorf("header provider %d is nil", i))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, apperrors.Access(err, "invalid destination %q", b.name)
	}

	name := b.name
	if name == "" {
		name = uri.Host
	}
	proxyType := b.proxyType
	if proxyType == "" {
		proxyType = Internet
	}

	return &HttpDestination{
		name:              name,
		uri:               uri,
		proxyURL:          proxy,
		proxyType:         proxyType,
		headers:           append([]Header(nil), b.headers...),
		providers:         append([]HeaderProvider(nil), b.providers...),
		properties:        gu.MapCopy(b.properties),
		clientCertificate: b.clientCertificate,
		resilience:        b.resilience,
	}, nil
}

func parseAbsolute(field, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s %q is not a valid URI: %w", field, raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s %q is not absolute", field, raw)
	}
	return u, nil
}
