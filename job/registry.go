package job

import (
	"errors"
	"fmt"
	"sort"
)

// Registry maps job types to workers. It is built once at startup and
// never mutated afterwards, so lookups need no locking.
type Registry struct {
	workers map[string]Worker
}

// RegistryBuilder collects registrations before the Registry is frozen.
// It is not safe for concurrent use.
type RegistryBuilder struct {
	workers map[string]Worker
	errs    []error
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{workers: make(map[string]Worker)}
}

// Register adds a typed definition to the builder.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Register[T any](b *RegistryBuilder, def *Definition[T]) {
	if def == nil || def.Handler == nil {
		b.errs = append(b.errs, errors.New("job: register: definition without handler"))
		return
	}
	b.Add(def.Name, typedWorker[T]{def: def})
}

// Add registers an untyped worker under name.
func (b *RegistryBuilder) Add(name string, w Worker) {
	switch {
	case name == "":
		b.errs = append(b.errs, errors.New("job: register: empty job type"))
	case w == nil:
		b.errs = append(b.errs, fmt.Errorf("job: register %q: nil worker", name))
	default:
		if _, dup := b.workers[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("job: register %q: duplicate job type", name))
			return
		}
		b.workers[name] = w
	}
}

// Build freezes the registrations. It fails if any registration was
// invalid.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	workers := make(map[string]Worker, len(b.workers))
	for name, w := range b.workers {
		workers[name] = w
	}
	return &Registry{workers: workers}, nil
}

// Lookup returns the worker for jobType.
func (r *Registry) Lookup(jobType string) (Worker, bool) {
	w, ok := r.workers[jobType]
	return w, ok
}

// Names returns all registered job types, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered job types.
func (r *Registry) Len() int { return len(r.workers) }
