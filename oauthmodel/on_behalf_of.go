package oauthmodel

import "fmt"

// OnBehalfOf determines which tenant and user a token is requested for.
type OnBehalfOf int

const (
	// TechnicalUserCurrentTenant requests a client-credentials token for the
	// tenant of the current request, falling back to the provider tenant.
	// This is the default.
	TechnicalUserCurrentTenant OnBehalfOf = iota

	// TechnicalUserProvider requests a client-credentials token for the
	// provider tenant regardless of the current request.
	TechnicalUserProvider

	// NamedUserCurrentTenant exchanges the current user token for a token of
	// this client (JWT bearer grant).
	NamedUserCurrentTenant
)

var onBehalfOfNames = map[OnBehalfOf]string{
	TechnicalUserCurrentTenant: "TECHNICAL_USER_CURRENT_TENANT",
	TechnicalUserProvider:      "TECHNICAL_USER_PROVIDER",
	NamedUserCurrentTenant:     "NAMED_USER_CURRENT_TENANT",
}

func (b OnBehalfOf) String() string {
	if name, ok := onBehalfOfNames[b]; ok {
		return name
	}
	return fmt.Sprintf("OnBehalfOf(%d)", int(b))
}

func (b OnBehalfOf) IsNamedUser() bool {
	return b == NamedUserCurrentTenant
}

// ParseOnBehalfOf accepts the upper case literal names.
func ParseOnBehalfOf(s string) (OnBehalfOf, error) {
	for b, name := range onBehalfOfNames {
		if name == s {
			return b, nil
		}
	}
	return TechnicalUserCurrentTenant, fmt.Errorf("%w: %q", ErrUnknownOnBehalfOf, s)
}

// TenantPropagationStrategy describes how the current tenant is communicated
// to the token endpoint.
type TenantPropagationStrategy int

const (
	// ZIDHeader sends the tenant id in the X-zid header (XSUAA).
	ZIDHeader TenantPropagationStrategy = iota

	// TenantSubdomain replaces the first label of the token endpoint host with
	// the tenant subdomain and sends the tenant id as app_tid (IAS).
	TenantSubdomain
)

func (s TenantPropagationStrategy) String() string {
	switch s {
	case ZIDHeader:
		return "ZID_HEADER"
	case TenantSubdomain:
		return "TENANT_SUBDOMAIN"
	default:
		return fmt.Sprintf("TenantPropagationStrategy(%d)", int(s))
	}
}
