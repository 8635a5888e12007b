package connectivity

import (
	"context"
	"crypto/tls"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	apperrors "github.com/jrsteele09/go-btp-connectivity/internal/errors"
	"github.com/jrsteele09/go-btp-connectivity/servicebinding"
	"github.com/jrsteele09/go-btp-connectivity/token/keys"
)

// zeroTrustSource serves the workload certificate provisioned into the zero
// trust identity binding.
type zeroTrustSource struct {
	binding servicebinding.ServiceBinding
}

var _ clients.CertificateSource = zeroTrustSource{}

// ZeroTrustIdentitySource returns the certificate source for X509_ATTESTED
// identities. Exactly one zero trust identity binding must exist.
func ZeroTrustIdentitySource(accessor servicebinding.Accessor) (clients.CertificateSource, error) {
	bindings, err := servicebinding.ByIdentifier(accessor, servicebinding.ZeroTrustIdentity)
	if err != nil {
		return nil, apperrors.ServiceBindingAccess(err, "Failed to read the zero trust identity service binding.")
	}
	if len(bindings) != 1 {
		return nil, apperrors.ServiceBindingAccess(nil,
			"Expected exactly one binding of service '%s' for credential type %s, found %d.",
			servicebinding.ZeroTrustIdentity, clients.X509Attested, len(bindings))
	}
	return zeroTrustSource{binding: bindings[0]}, nil
}

func (z zeroTrustSource) Certificate(context.Context) (tls.Certificate, error) {
	cert, certOK := z.binding.Credential("certificate")
	key, keyOK := z.binding.Credential("key")
	certPEM, _ := cert.(string)
	keyPEM, _ := key.(string)
	if !certOK || !keyOK || certPEM == "" || keyPEM == "" {
		return tls.Certificate{}, apperrors.ServiceBindingAccess(nil, "The zero trust identity binding does not contain a certificate and key.")
	}
	return keys.LoadX509KeyPair(certPEM, keyPEM)
}

func (z zeroTrustSource) SourceID() string {
	return string(servicebinding.ZeroTrustIdentity) + ":" + z.binding.Name()
}
