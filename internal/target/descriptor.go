package target

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultImpl tags the built-in target variant in serialized descriptors.
const DefaultImpl = "records"

// ErrUnknownImpl is returned when a descriptor names an unregistered
// variant.
var ErrUnknownImpl = errors.New("unknown target impl")

// Descriptor is the persisted form of a target configuration. It carries the
// implementing-variant tag plus the two field names and round-trips
// losslessly through FromDescriptor.
type Descriptor struct {
	Impl                      string `json:"impl"`
	IDFieldName               string `json:"idFieldName"`
	ModificationDateFieldName string `json:"modificationDateFieldName"`
}

// Factory constructs a target variant from its persisted descriptor.
// Implementations register themselves with Register.
type Factory func(Descriptor) (*Target, error)

var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// Register registers a target variant constructor under its impl tag.
// It panics on a nil factory or a duplicate tag.
func Register(impl string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic(fmt.Sprintf("target: Register factory is nil for impl %s", impl))
	}
	if _, exists := registry[impl]; exists {
		panic(fmt.Sprintf("target: Register called twice for impl %s", impl))
	}
	registry[impl] = factory
}

// FromDescriptor reconstructs a target from its persisted descriptor via the
// registered factory for its impl tag. An empty tag selects the built-in
// variant.
func FromDescriptor(d Descriptor) (*Target, error) {
	impl := d.Impl
	if impl == "" {
		impl = DefaultImpl
	}

	registryMu.RLock()
	factory := registry[impl]
	registryMu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImpl, impl)
	}

	t, err := factory(d)
	if err != nil {
		return nil, err
	}
	t.impl = impl
	return t, nil
}

// Descriptor returns the persisted form of the target. Reconstructing from
// it yields a target with the same impl tag and field names.
func (t *Target) Descriptor() Descriptor {
	return Descriptor{
		Impl:                      t.impl,
		IDFieldName:               t.idField,
		ModificationDateFieldName: t.modField,
	}
}

func init() {
	Register(DefaultImpl, func(d Descriptor) (*Target, error) {
		var opts []Option
		if d.IDFieldName != "" {
			opts = append(opts, WithIDField(d.IDFieldName))
		}
		if d.ModificationDateFieldName != "" {
			opts = append(opts, WithModificationDateField(d.ModificationDateFieldName))
		}
		return New(opts...), nil
	})
}
