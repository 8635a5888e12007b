package servicebinding

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jrsteele09/go-btp-connectivity/internal/utils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const vcapServicesVar = "VCAP_SERVICES"

// Accessor provides the service bindings visible to the application.
type Accessor interface {
	ServiceBindings() ([]ServiceBinding, error)
}

// StaticAccessor serves a fixed list of bindings.
type StaticAccessor []ServiceBinding

var _ Accessor = StaticAccessor(nil)

func (s StaticAccessor) ServiceBindings() ([]ServiceBinding, error) {
	return append([]ServiceBinding(nil), s...), nil
}

// EnvAccessor reads bindings from the VCAP_SERVICES environment variable.
type EnvAccessor struct {
	lookup func(string) (string, bool)
}

var _ Accessor = (*EnvAccessor)(nil)

func NewEnvAccessor() *EnvAccessor {
	return &EnvAccessor{lookup: os.LookupEnv}
}

// NewEnvAccessorWithLookup is used by tests to supply the environment.
func NewEnvAccessorWithLookup(lookup func(string) (string, bool)) *EnvAccessor {
	return &EnvAccessor{lookup: lookup}
}

func (e *EnvAccessor) ServiceBindings() ([]ServiceBinding, error) {
	raw, ok := e.lookup(vcapServicesVar)
	if !ok || raw == "" {
		return nil, nil
	}
	var services map[string][]bindingDocument
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", vcapServicesVar)
	}

	labels := make([]string, 0, len(services))
	for label := range services {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	bindings := make([]ServiceBinding, 0)
	for _, label := range labels {
		for _, doc := range services[label] {
			if doc.Label == "" {
				doc.Label = label
			}
			bindings = append(bindings, doc.toBinding())
		}
	}
	return bindings, nil
}

// bindingDocument is the on-disk and VCAP_SERVICES representation of a binding.
type bindingDocument struct {
	Name        string         `json:"name" yaml:"name"`
	Label       string         `json:"label" yaml:"label"`
	Service     string         `json:"service" yaml:"service"`
	Plan        string         `json:"plan" yaml:"plan"`
	Tags        []any          `json:"tags" yaml:"tags"`
	Credentials map[string]any `json:"credentials" yaml:"credentials"`
}

func (d bindingDocument) toBinding() ServiceBinding {
	identifier := utils.FirstNonEmpty(d.Label, d.Service)
	return New(Identifier(identifier), d.Credentials,
		WithName(d.Name),
		WithServiceName(identifier),
		WithServicePlan(d.Plan),
		WithTags(utils.ToStringSlice(d.Tags)...),
	)
}

// Decode parses a JSON or YAML list of bindings.
func Decode(data []byte) ([]ServiceBinding, error) {
	var docs []bindingDocument
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, errors.Wrap(err, "failed to decode service bindings")
	}
	bindings := make([]ServiceBinding, 0, len(docs))
	for i, doc := range docs {
		if doc.Label == "" && doc.Service == "" {
			return nil, fmt.Errorf("[servicebinding Decode] binding %d has neither label nor service", i)
		}
		bindings = append(bindings, doc.toBinding())
	}
	return bindings, nil
}

// LoadFile reads a JSON or YAML file of bindings into a StaticAccessor.
func LoadFile(path string) (StaticAccessor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read service bindings from %s", path)
	}
	bindings, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return StaticAccessor(bindings), nil
}

// ByIdentifier returns the bindings of accessor tagged with identifier.
func ByIdentifier(accessor Accessor, identifier ServiceIdentifier) ([]ServiceBinding, error) {
	all, err := accessor.ServiceBindings()
	if err != nil {
		return nil, err
	}
	identifier = Identifier(string(identifier))
	matches := make([]ServiceBinding, 0, 1)
	for _, b := range all {
		if id, ok := b.Identifier(); ok && id == identifier {
			matches = append(matches, b)
		}
	}
	return matches, nil
}
