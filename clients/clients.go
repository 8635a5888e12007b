package clients

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-btp-connectivity/token/keys"
	"golang.org/x/crypto/blake2b"
)

var ErrNoCertificateSource = errors.New("no certificate source configured")

// Identity is the credential material a client uses to authenticate at a
// token endpoint. Implementations never print their secrets.
type Identity interface {
	ID() string
	// fingerprintInput returns a stable representation of all secret material.
	fingerprintInput() []byte
}

// ClientCredentials authenticates with client id and secret in the request body.
type ClientCredentials struct {
	ClientID string
	Secret   string
}

var _ Identity = ClientCredentials{}

func (c ClientCredentials) ID() string { return c.ClientID }

func (c ClientCredentials) String() string {
	return fmt.Sprintf("ClientCredentials(%s)", c.ClientID)
}

func (c ClientCredentials) fingerprintInput() []byte {
	return []byte("secret\x00" + c.ClientID + "\x00" + c.Secret)
}

// ClientCertificate authenticates with mutual TLS using a PEM certificate and key.
type ClientCertificate struct {
	ClientID    string
	Certificate string
	Key         string
}

var _ Identity = ClientCertificate{}

func (c ClientCertificate) ID() string { return c.ClientID }

func (c ClientCertificate) String() string {
	return fmt.Sprintf("ClientCertificate(%s)", c.ClientID)
}

func (c ClientCertificate) fingerprintInput() []byte {
	return []byte("certificate\x00" + c.ClientID + "\x00" + c.Certificate + "\x00" + c.Key)
}

// TLSCertificate parses the PEM material.
func (c ClientCertificate) TLSCertificate(context.Context) (tls.Certificate, error) {
	return keys.LoadX509KeyPair(c.Certificate, c.Key)
}

// CertificateSource provides a client certificate issued by a platform trust
// service, e.g. the zero trust identity service.
type CertificateSource interface {
	Certificate(ctx context.Context) (tls.Certificate, error)
	// SourceID distinguishes sources in cache keys.
	SourceID() string
}

// AttestedCertificate authenticates with mutual TLS using a certificate that is
// fetched on demand from a CertificateSource.
type AttestedCertificate struct {
	ClientID string
	Source   CertificateSource
}

var _ Identity = AttestedCertificate{}

func (c AttestedCertificate) ID() string { return c.ClientID }

func (c AttestedCertificate) String() string {
	return fmt.Sprintf("AttestedCertificate(%s)", c.ClientID)
}

func (c AttestedCertificate) fingerprintInput() []byte {
	source := ""
	if c.Source != nil {
		source = c.Source.SourceID()
	}
	return []byte("attested\x00" + c.ClientID + "\x00" + source)
}

func (c AttestedCertificate) TLSCertificate(ctx context.Context) (tls.Certificate, error) {
	if c.Source == nil {
		return tls.Certificate{}, ErrNoCertificateSource
	}
	return c.Source.Certificate(ctx)
}

// CertificateIdentity is implemented by identities authenticating with mTLS.
type CertificateIdentity interface {
	Identity
	TLSCertificate(ctx context.Context) (tls.Certificate, error)
}

var (
	_ CertificateIdentity = ClientCertificate{}
	_ CertificateIdentity = AttestedCertificate{}
)

// Fingerprint returns a short hex digest covering the identity type, id and
// secret material. Equal identities yield equal fingerprints.
func Fingerprint(identity Identity) string {
	if identity == nil {
		return ""
	}
	sum := blake2b.Sum256(identity.fingerprintInput())
	return hex.EncodeToString(sum[:16])
}

// HashString returns the same kind of digest for arbitrary values, e.g. a
// client id used in a destination name.
func HashString(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
