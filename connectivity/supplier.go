package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/internal/config"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/token"
)

// PropertySupplier extracts the OAuth2 properties of one kind of binding.
// Errors of the accessor methods are destination access errors.
type PropertySupplier interface {
	// IsOAuth2Binding reports whether the binding carries OAuth2 client
	// credentials this supplier understands.
	IsOAuth2Binding() (bool, error)
	ServiceURI() (*url.URL, error)
	TokenURI() (*url.URL, error)
	ClientIdentity() (clients.Identity, error)
	CredentialType() (clients.CredentialType, error)
	// OAuth2Options returns the token retrieval settings for the tenant of ctx.
	OAuth2Options(ctx context.Context) (token.Options, error)
}

// UAAPath is where XSUAA bindings keep their OAuth2 properties.
var UAAPath = []string{"uaa"}

// DefaultPropertySupplier reads the OAuth2 properties from a block of the
// binding credentials, "uaa" unless told otherwise:
//
//	credentials.url                   service URI
//	credentials.uaa.url / certurl     token URI (certurl for X509 credential types)
//	credentials.uaa.clientid          client id, presence marks an OAuth2 binding
//	credentials.uaa.clientsecret      secret identities
//	credentials.uaa.certificate, key  certificate identities
//	credentials.uaa.credential-type   defaults to binding-secret
//
// Suppliers for other binding shapes embed it and override single methods.
type DefaultPropertySupplier struct {
	options   Options
	oauthPath []string
}

var _ PropertySupplier = (*DefaultPropertySupplier)(nil)

func NewDefaultPropertySupplier(options Options) *DefaultPropertySupplier {
	return NewDefaultPropertySupplierWithPath(options, UAAPath...)
}

// NewDefaultPropertySupplierWithPath reads OAuth2 properties below path. An
// empty path means the credentials root.
func NewDefaultPropertySupplierWithPath(options Options, path ...string) *DefaultPropertySupplier {
	return &DefaultPropertySupplier{options: options, oauthPath: append([]string(nil), path...)}
}

func (s *DefaultPropertySupplier) Options() Options { return s.options }

func (s *DefaultPropertySupplier) oauth(path ...string) []string {
	full := append([]string(nil), s.oauthPath...)
	return append(full, path...)
}

func (s *DefaultPropertySupplier) IsOAuth2Binding() (bool, error) {
	clientID, ok, err := OAuthCredential[string](s, "clientid")
	if err != nil {
		return false, err
	}
	return ok && clientID != "", nil
}

func (s *DefaultPropertySupplier) ServiceURI() (*url.URL, error) {
	return RequireCredential[*url.URL](s, "url")
}

func (s *DefaultPropertySupplier) TokenURI() (*url.URL, error) {
	ct, err := s.CredentialType()
	if err != nil {
		return nil, err
	}
	property := "url"
	if ct.IsCertificate() {
		property = "certurl"
	}
	return RequireOAuthCredential[*url.URL](s, property)
}

func (s *DefaultPropertySupplier) CredentialType() (clients.CredentialType, error) {
	ct, ok, err := OAuthCredential[clients.CredentialType](s, "credential-type")
	if err != nil {
		return "", err
	}
	if !ok {
		return clients.DefaultCredentialType, nil
	}
	return ct, nil
}

func (s *DefaultPropertySupplier) ClientIdentity() (clients.Identity, error) {
	ct, err := s.CredentialType()
	if err != nil {
		return nil, err
	}
	return s.identityFor(ct)
}

func (s *DefaultPropertySupplier) identityFor(ct clients.CredentialType) (clients.Identity, error) {
	clientID, err := RequireOAuthCredential[string](s, "clientid")
	if err != nil {
		return nil, err
	}
	switch ct {
	case clients.X509, clients.X509Generated:
		cert, err := RequireOAuthCredential[string](s, "certificate")
		if err != nil {
			return nil, err
		}
		key, err := RequireOAuthCredential[string](s, "key")
		if err != nil {
			return nil, err
		}
		return clients.ClientCertificate{ClientID: clientID, Certificate: cert, Key: key}, nil
	case clients.X509Attested:
		source, err := ZeroTrustIdentitySource(s.options.Accessor())
		if err != nil {
			return nil, err
		}
		return clients.AttestedCertificate{ClientID: clientID, Source: source}, nil
	case clients.X509Provided:
		return nil, apperrors.Unsupported("credential type %s is not supported", ct)
	default:
		secret, err := RequireOAuthCredential[string](s, "clientsecret")
		if err != nil {
			return nil, err
		}
		return clients.ClientCredentials{ClientID: clientID, Secret: secret}, nil
	}
}

// OAuth2Options applies the TokenTimeout and TokenCacheParameters options
// over the configured defaults.
func (s *DefaultPropertySupplier) OAuth2Options(context.Context) (token.Options, error) {
	return defaultOAuth2Options(s.options)
}

func defaultOAuth2Options(o Options) (token.Options, error) {
	settings := config.Load(config.New())
	override := config.Settings{}
	if timeout, ok := GetOption[TokenTimeout](o); ok {
		override.TokenTimeout = time.Duration(timeout)
	}
	if params, ok := GetOption[TokenCacheParameters](o); ok {
		override.CacheMaxEntries = params.MaxEntries
		override.CacheDuration = params.Duration
		override.CacheJitter = params.Jitter
		override.ExpirationDelta = params.ExpirationDelta
	}
	merged, err := config.Merge(settings, override)
	if err != nil {
		return token.Options{}, apperrors.Access(err, "invalid token options")
	}

	opts := token.DefaultOptions()
	opts.Timeout = merged.TokenTimeout
	opts.CacheParameters = token.CacheParametersFrom(merged)
	return opts, nil
}

// Credential reads path from the binding credentials. A missing path yields
// false; a value that cannot be converted to T is an access error.
func Credential[T any](s *DefaultPropertySupplier, path ...string) (T, bool, error) {
	var zero T
	v, ok := s.options.binding.Credential(path...)
	if !ok {
		return zero, false, nil
	}
	converted, err := Convert[T](v)
	if err != nil {
		return zero, false, err
	}
	return converted, true, nil
}

// RequireCredential is Credential for mandatory properties.
func RequireCredential[T any](s *DefaultPropertySupplier, path ...string) (T, error) {
	v, ok, err := Credential[T](s, path...)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, apperrors.Access(nil, "Failed to resolve property %v from service binding.", path)
	}
	return v, nil
}

// OAuthCredential reads path below the OAuth2 block of the credentials.
func OAuthCredential[T any](s *DefaultPropertySupplier, path ...string) (T, bool, error) {
	return Credential[T](s, s.oauth(path...)...)
}

func RequireOAuthCredential[T any](s *DefaultPropertySupplier, path ...string) (T, error) {
	return RequireCredential[T](s, s.oauth(path...)...)
}

// Convert coerces a credential value to T. Supported targets are string,
// *url.URL, int, bool and clients.CredentialType. A nil value converts to the
// zero value.
func Convert[T any](value any) (T, error) {
	var zero T
	if value == nil {
		return zero, nil
	}
	if v, ok := value.(T); ok {
		return v, nil
	}

	var out T
	switch target := any(&out).(type) {
	case *string:
		*target = fmt.Sprint(value)
	case **url.URL:
		s, ok := value.(string)
		if !ok {
			return zero, apperrors.Access(nil, "Unable to convert '%v' into an URI.", value)
		}
		u, err := url.Parse(s)
		if err != nil {
			return zero, apperrors.Access(err, "Unable to convert '%v' into an URI.", value)
		}
		*target = u
	case *int:
		i, err := toInt(value)
		if err != nil {
			return zero, apperrors.Access(err, "Unable to convert '%v' into an Integer.", value)
		}
		*target = i
	case *bool:
		switch v := value.(type) {
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return zero, apperrors.Access(err, "Unable to convert '%v' into a Boolean.", value)
			}
			*target = b
		default:
			return zero, apperrors.Access(nil, "Unable to convert '%v' into a Boolean.", value)
		}
	case *clients.CredentialType:
		s, ok := value.(string)
		if !ok {
			return zero, apperrors.Access(nil, "Unable to convert '%v' into a CredentialType.", value)
		}
		ct, ok := clients.ParseCredentialType(s)
		if !ok {
			return zero, apperrors.Access(nil, "Unable to convert '%v' into a CredentialType.", value)
		}
		*target = ct
	default:
		return zero, apperrors.Access(nil, "Property value %v could not be parsed into unknown type %T", value, zero)
	}
	return out, nil
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case string:
		return strconv.Atoi(v)
	case json.Number:
		i, err := v.Int64()
		return int(i), err
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
