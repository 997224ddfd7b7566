package rate

import (
	"fmt"
	"sort"

	"github.com/MrEthical07/authcore/kvstore"
)

// Registry holds independent named limiters that share one store.
type Registry struct {
	limiters map[string]*Limiter
}

// NewRegistry builds one limiter per policy. Policy names must be unique.
func NewRegistry(store kvstore.Store, policies ...Policy) (*Registry, error) {
	r := &Registry{limiters: make(map[string]*Limiter, len(policies))}
	for _, p := range policies {
		if _, exists := r.limiters[p.Name]; exists {
			return nil, fmt.Errorf("duplicate rate policy %q", p.Name)
		}
		l, err := New(store, p)
		if err != nil {
			return nil, err
		}
		r.limiters[p.Name] = l
	}
	return r, nil
}

// Get returns the limiter registered under name.
func (r *Registry) Get(name string) (*Limiter, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLimiter, name)
	}
	l, ok := r.limiters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLimiter, name)
	}
	return l, nil
}

// Names lists registered limiter names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
