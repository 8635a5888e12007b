package clients_test

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"testing"

	"github.com/jrsteele09/go-btp-connectivity/clients"
	"github.com/jrsteele09/go-btp-connectivity/token/keys"
	"github.com/stretchr/testify/require"
)

func TestParseCredentialType(t *testing.T) {
	for _, ct := range clients.CredentialTypes() {
		for _, variant := range []string{string(ct), strings.ToLower(string(ct)), strings.ToUpper(string(ct)), " " + string(ct) + " "} {
			parsed, ok := clients.ParseCredentialType(variant)
			require.True(t, ok, variant)
			require.Equal(t, ct, parsed)
		}
	}

	parsed, ok := clients.ParseCredentialType("BINDING_SECRET")
	require.True(t, ok)
	require.Equal(t, clients.BindingSecret, parsed)

	_, ok = clients.ParseCredentialType("password")
	require.False(t, ok)
	_, ok = clients.ParseCredentialType("")
	require.False(t, ok)
}

func TestCredentialTypeIsCertificate(t *testing.T) {
	require.False(t, clients.BindingSecret.IsCertificate())
	require.False(t, clients.InstanceSecret.IsCertificate())
	require.True(t, clients.X509.IsCertificate())
	require.True(t, clients.X509Attested.IsCertificate())
}

func TestFingerprint(t *testing.T) {
	a := clients.ClientCredentials{ClientID: "id", Secret: "secret"}
	b := clients.ClientCredentials{ClientID: "id", Secret: "secret"}
	c := clients.ClientCredentials{ClientID: "id", Secret: "other"}
	d := clients.ClientCertificate{ClientID: "id", Certificate: "secret"}

	require.Equal(t, clients.Fingerprint(a), clients.Fingerprint(b))
	require.NotEqual(t, clients.Fingerprint(a), clients.Fingerprint(c))
	require.NotEqual(t, clients.Fingerprint(a), clients.Fingerprint(d))
	require.Empty(t, clients.Fingerprint(nil))
	require.Len(t, clients.HashString("id"), 16)
}

func TestIdentityStringHidesSecret(t *testing.T) {
	ids := []clients.Identity{
		clients.ClientCredentials{ClientID: "id", Secret: "top-secret"},
		clients.ClientCertificate{ClientID: "id", Key: "top-secret"},
	}
	for _, id := range ids {
		require.NotContains(t, fmt.Sprint(id), "top-secret")
		require.Equal(t, "id", id.ID())
	}
}

type staticSource struct{ cert tls.Certificate }

func (s staticSource) Certificate(context.Context) (tls.Certificate, error) { return s.cert, nil }
func (s staticSource) SourceID() string                                     { return "static" }

func TestCertificateIdentities(t *testing.T) {
	certPEM, keyPEM, err := keys.GenerateSelfSigned("client")
	require.NoError(t, err)

	cc := clients.ClientCertificate{ClientID: "id", Certificate: certPEM, Key: keyPEM}
	cert, err := cc.TLSCertificate(context.Background())
	require.NoError(t, err)

	attested := clients.AttestedCertificate{ClientID: "id", Source: staticSource{cert: cert}}
	got, err := attested.TLSCertificate(context.Background())
	require.NoError(t, err)
	require.Equal(t, cert.Certificate, got.Certificate)

	_, err = clients.AttestedCertificate{ClientID: "id"}.TLSCertificate(context.Background())
	require.ErrorIs(t, err, clients.ErrNoCertificateSource)
}
