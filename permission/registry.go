package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

const maxPermissionNameLen = 64

// Registry is the closed catalogue of permission names roles may reference.
type Registry struct {
	mu     sync.RWMutex
	names  map[string]struct{}
	frozen bool
}

// NewRegistry creates an empty registry. The wildcard is always known.
func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{Wildcard: {}}}
}

// Register adds a permission name. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if err := validateName(name); err != nil {
		return err
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("permission already registered: %s", name)
	}
	r.names[name] = struct{}{}
	return nil
}

// Known reports whether name is registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions, the wildcard included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Names lists registered permissions in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func validateName(name string) error {
	if name == "" {
		return errors.New("permission name cannot be empty")
	}
	if len(name) > maxPermissionNameLen {
		return fmt.Errorf("permission name too long: %q", name)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == ':', c == '.', c == '-':
		default:
			return fmt.Errorf("invalid character %q in permission %q", c, name)
		}
	}
	return nil
}
