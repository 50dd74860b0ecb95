// Package hooks is a small extension hook registry. Bindings are invoked in
// priority order; the last non-empty result wins, matching how hosts chain
// extension calls.
package hooks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/eugenenazirov/minimee/internal/settings"
)

// Func is a settings hook. It may claim a location on the store.
type Func func(store *settings.Store) (map[string]any, error)

// Binding ties a class method to a hook.
type Binding struct {
	Class    string
	Method   string
	Version  string
	Priority int
	Fn       Func
}

// Registry holds hook bindings. It satisfies settings.HookDispatcher.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string][]Binding
	versions map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string][]Binding),
		versions: make(map[string]string),
	}
}

// Register adds or replaces the binding for b.Class on hook.
func (r *Registry) Register(hook string, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.bindings[hook]
	for i := range list {
		if list[i].Class == b.Class {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, b)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
	r.bindings[hook] = list
	if b.Version != "" {
		r.versions[b.Class] = b.Version
	}
}

// Apply records a registration requested by a settings resolution. It is a
// no-op when the class is already bound. fn may be nil when the host binds
// the method elsewhere.
func (r *Registry) Apply(reg *settings.HookRegistration, fn Func) bool {
	if reg == nil || r.HasBinding(reg.Hook, reg.Class) {
		return false
	}
	r.Register(reg.Hook, Binding{
		Class:    reg.Class,
		Method:   reg.Method,
		Version:  reg.Version,
		Priority: reg.Priority,
		Fn:       fn,
	})
	return true
}

// IsActive reports whether anything is bound to hook.
func (r *Registry) IsActive(hook string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings[hook]) > 0
}

// HasBinding reports whether class is bound to hook.
func (r *Registry) HasBinding(hook, class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bindings[hook] {
		if b.Class == class {
			return true
		}
	}
	return false
}

// Bindings returns a copy of the bindings for hook in call order.
func (r *Registry) Bindings(hook string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Binding, len(r.bindings[hook]))
	copy(out, r.bindings[hook])
	return out
}

// Version returns the version registered for class.
func (r *Registry) Version(class string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.versions[class]
}

// Invoke calls every binding with a function in priority order. The last
// non-empty mapping is returned. The first error stops the chain.
func (r *Registry) Invoke(hook string, store *settings.Store) (map[string]any, error) {
	var result map[string]any
	for _, b := range r.Bindings(hook) {
		if b.Fn == nil {
			continue
		}
		out, err := b.Fn(store)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", b.Class, b.Method, err)
		}
		if len(out) > 0 {
			result = out
		}
	}
	return result, nil
}
