package servicebinding

import (
	"strconv"
	"strings"
)

// ServiceIdentifier names the platform service a binding belongs to. Values
// are normalised to trimmed lower case.
type ServiceIdentifier string

const (
	Destination            ServiceIdentifier = "destination"
	Connectivity           ServiceIdentifier = "connectivity"
	XSUAA                  ServiceIdentifier = "xsuaa"
	IdentityAuthentication ServiceIdentifier = "identity"
	Workflow               ServiceIdentifier = "workflow"
	BusinessRules          ServiceIdentifier = "business-rules"
	BusinessLogging        ServiceIdentifier = "business-logging"
	AICore                 ServiceIdentifier = "aicore"
	AuditLogRetrieval      ServiceIdentifier = "auditlog-management"
	ZeroTrustIdentity      ServiceIdentifier = "zero-trust-identity"
)

// KnownIdentifiers lists every identifier declared above. Keep it in sync with
// the constants.
func KnownIdentifiers() []ServiceIdentifier {
	return []ServiceIdentifier{
		Destination,
		Connectivity,
		XSUAA,
		IdentityAuthentication,
		Workflow,
		BusinessRules,
		BusinessLogging,
		AICore,
		AuditLogRetrieval,
		ZeroTrustIdentity,
	}
}

// Identifier normalises s into a ServiceIdentifier.
func Identifier(s string) ServiceIdentifier {
	return ServiceIdentifier(strings.ToLower(strings.TrimSpace(s)))
}

func (s ServiceIdentifier) String() string {
	return string(s)
}

// ServiceBinding is an immutable credentials bundle for one service instance.
// The credentials are a nested structure of map[string]any, []any and scalars.
type ServiceBinding struct {
	name        string
	serviceName string
	servicePlan string
	identifier  ServiceIdentifier
	tags        []string
	credentials map[string]any
}

type Option func(*ServiceBinding)

func WithName(name string) Option {
	return func(b *ServiceBinding) {
		b.name = name
	}
}

func WithServiceName(serviceName string) Option {
	return func(b *ServiceBinding) {
		b.serviceName = serviceName
	}
}

func WithServicePlan(plan string) Option {
	return func(b *ServiceBinding) {
		b.servicePlan = plan
	}
}

func WithTags(tags ...string) Option {
	return func(b *ServiceBinding) {
		b.tags = append([]string(nil), tags...)
	}
}

// New creates a binding. The credentials are deep copied so later changes to
// the argument are not observed.
func New(identifier ServiceIdentifier, credentials map[string]any, options ...Option) ServiceBinding {
	b := ServiceBinding{
		identifier:  Identifier(string(identifier)),
		credentials: copyMap(credentials),
	}
	for _, opt := range options {
		opt(&b)
	}
	if b.serviceName == "" {
		b.serviceName = string(b.identifier)
	}
	return b
}

func (b ServiceBinding) Name() string        { return b.name }
func (b ServiceBinding) ServiceName() string { return b.serviceName }
func (b ServiceBinding) ServicePlan() string { return b.servicePlan }

// Identifier returns the service identifier and whether one was set.
func (b ServiceBinding) Identifier() (ServiceIdentifier, bool) {
	return b.identifier, b.identifier != ""
}

func (b ServiceBinding) Tags() []string {
	return append([]string(nil), b.tags...)
}

func (b ServiceBinding) HasTag(tag string) bool {
	for _, t := range b.tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Credentials returns a deep copy of the credentials.
func (b ServiceBinding) Credentials() map[string]any {
	return copyMap(b.credentials)
}

// Credential walks path through the credentials. Map segments are keys, list
// segments are decimal indexes. A missing segment yields false, never an error.
// Maps and lists are returned as copies.
func (b ServiceBinding) Credential(path ...string) (any, bool) {
	var current any = b.credentials
	for _, segment := range path {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return copyValue(current), true
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			if s, ok := k.(string); ok {
				m[s] = copyValue(val)
			}
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
