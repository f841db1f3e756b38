package step

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/sagaflow/model/types"
)

// Registry holds named steps
type Registry struct {
	steps  map[string]*Step
	closed bool
	mux    sync.RWMutex
}

// Register resolves candidate into an executor and registers it under name.
// Candidate may be any form accepted by types.NewExecutor.
func (r *Registry) Register(name string, candidate interface{}, options ...Option) error {
	if name == "" {
		return ErrEmptyName
	}
	executor, err := types.NewExecutor(candidate)
	if err != nil {
		return fmt.Errorf("failed to register step %v: %w", name, err)
	}
	if executor == nil {
		return fmt.Errorf("failed to register step %v: executor is nil", name)
	}
	aStep := &Step{Name: name, Executor: executor}
	for _, opt := range options {
		opt(aStep)
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.steps[name]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicate, name)
	}
	r.steps[name] = aStep
	return nil
}

// Replace registers a step, replacing any step with the same name
func (r *Registry) Replace(name string, candidate interface{}, options ...Option) error {
	r.Unregister(name)
	return r.Register(name, candidate, options...)
}

// Lookup returns a step by name
func (r *Registry) Lookup(name string) (*Step, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	aStep, ok := r.steps[name]
	return aStep, ok
}

// Names returns sorted registered step names
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.steps))
	for name := range r.steps {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Unregister removes a step, it returns false when the step was not registered
func (r *Registry) Unregister(name string) bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	if _, ok := r.steps[name]; !ok {
		return false
	}
	delete(r.steps, name)
	return true
}

// Close releases all steps; subsequent registrations fail with ErrClosed
func (r *Registry) Close() error {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.steps = map[string]*Step{}
	r.closed = true
	return nil
}

// New creates a registry
func New() *Registry {
	return &Registry{steps: map[string]*Step{}}
}

type registryKey struct{}

// WithRegistry returns a context carrying r
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// FromContext returns the registry carried by ctx
func FromContext(ctx context.Context) (*Registry, bool) {
	if ctx == nil {
		return nil, false
	}
	r, ok := ctx.Value(registryKey{}).(*Registry)
	return r, ok && r != nil
}
