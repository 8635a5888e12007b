package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"
)

var ErrNoCertificate = errors.New("no certificate in PEM data")

// normalizePEM repairs PEM blocks whose line breaks were escaped when the
// binding was serialised.
func normalizePEM(s string) []byte {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "\n") && strings.Contains(s, `\n`) {
		s = strings.ReplaceAll(s, `\n`, "\n")
	}
	return []byte(s)
}

// LoadX509KeyPair parses a PEM certificate chain and private key.
func LoadX509KeyPair(certPEM, keyPEM string) (tls.Certificate, error) {
	if strings.TrimSpace(certPEM) == "" {
		return tls.Certificate{}, ErrNoCertificate
	}
	cert, err := tls.X509KeyPair(normalizePEM(certPEM), normalizePEM(keyPEM))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load client certificate: %w", err)
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		cert.Leaf, _ = x509.ParseCertificate(cert.Certificate[0])
	}
	return cert, nil
}

// ClientTLSConfig returns a TLS configuration presenting cert to servers.
func ClientTLSConfig(base *tls.Config, cert tls.Certificate) *tls.Config {
	var cfg *tls.Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	cfg.Certificates = []tls.Certificate{cert}
	return cfg
}

// MutualTLSTransport clones base (or the default transport) and configures it
// to present cert.
func MutualTLSTransport(base http.RoundTripper, cert tls.Certificate) (*http.Transport, error) {
	if base == nil {
		base = http.DefaultTransport
	}
	t, ok := base.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("mutual TLS requires an *http.Transport, got %T", base)
	}
	clone := t.Clone()
	clone.TLSClientConfig = ClientTLSConfig(t.TLSClientConfig, cert)
	return clone, nil
}

// GenerateSelfSigned creates a short lived ECDSA certificate and key in PEM
// form, for local testing of mTLS identities.
func GenerateSelfSigned(commonName string) (certPEM, keyPEM string, err error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate serial: %w", err)
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName, Country: []string{"DE"}},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal key: %w", err)
	}
	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM, nil
}
