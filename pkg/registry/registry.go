// Package registry maps view-kind identifiers to the factories needed to
// reconstruct typed views from persisted state. Registration happens once at
// process start; collisions are programmer error. Kinds that need to
// instantiate each other reference the registry lazily by kind id, resolved
// at call time, so no build-time cycle ever forms between view packages.
package registry

import (
	"sync"

	"github.com/odvcencio/chatview/pkg/errors"
	"github.com/odvcencio/chatview/pkg/view"
)

// Registry is the kind -> factory table. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]view.Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]view.Factory),
	}
}

// Register adds a view kind. Registering the same kind twice fails with a
// validation error.
func (r *Registry) Register(kind string, factory view.Factory) error {
	if kind == "" {
		return errors.New(errors.CodeDuplicateKind, "view kind cannot be empty")
	}
	if factory == nil {
		return errors.Newf(errors.CodeDuplicateKind, "view kind %q registered with nil factory", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return errors.Newf(errors.CodeDuplicateKind, "view kind %q is already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Factory returns the factory for a kind. Unknown kinds are a state error:
// persisted data may reference a view type removed from the build.
func (r *Registry) Factory(kind string) (view.Factory, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.CodeUnknownKind, "no view kind %q registered", kind)
	}
	return factory, nil
}

// Known reports whether a kind is registered.
func (r *Registry) Known(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Reconstruct builds a typed view from its persisted state.
func (r *Registry) Reconstruct(kind string, state []byte) (view.View, error) {
	factory, err := r.Factory(kind)
	if err != nil {
		return nil, err
	}
	v, err := factory(state)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreCorrupt, "failed to reconstruct view").
			WithContext("kind", kind)
	}
	return v, nil
}

// Lazy is a deferred reference to a registered kind. It holds only the kind
// id; resolution happens on each call, so a Lazy can be created before the
// target kind is registered.
type Lazy struct {
	registry *Registry
	kind     string
}

// Lazy returns a deferred reference to kind.
func (r *Registry) Lazy(kind string) Lazy {
	return Lazy{registry: r, kind: kind}
}

// Kind returns the referenced kind id.
func (l Lazy) Kind() string { return l.kind }

// New instantiates the referenced kind from serialized state.
func (l Lazy) New(state []byte) (view.View, error) {
	return l.registry.Reconstruct(l.kind, state)
}
