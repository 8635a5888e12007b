package clients

import "strings"

// CredentialType is the "credential-type" member of a binding. It decides how
// the client identity is built.
type CredentialType string

const (
	BindingSecret  CredentialType = "binding-secret"
	InstanceSecret CredentialType = "instance-secret"
	X509           CredentialType = "x509"
	X509Generated  CredentialType = "X509_GENERATED"
	X509Provided   CredentialType = "X509_PROVIDED"
	X509Attested   CredentialType = "X509_ATTESTED"
)

// DefaultCredentialType applies when a binding does not declare one.
const DefaultCredentialType = BindingSecret

var credentialTypes = []CredentialType{
	BindingSecret,
	InstanceSecret,
	X509,
	X509Generated,
	X509Provided,
	X509Attested,
}

// CredentialTypes returns all known credential types.
func CredentialTypes() []CredentialType {
	return append([]CredentialType(nil), credentialTypes...)
}

// ParseCredentialType matches s case-insensitively against the literal forms.
// Underscores and hyphens are interchangeable so "BINDING_SECRET" is accepted too.
func ParseCredentialType(s string) (CredentialType, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	for _, ct := range credentialTypes {
		if strings.EqualFold(strings.ReplaceAll(string(ct), "_", "-"), normalized) {
			return ct, true
		}
	}
	return "", false
}

// IsCertificate reports whether the type authenticates with mutual TLS.
func (c CredentialType) IsCertificate() bool {
	switch c {
	case X509, X509Generated, X509Provided, X509Attested:
		return true
	default:
		return false
	}
}

func (c CredentialType) String() string {
	return string(c)
}
