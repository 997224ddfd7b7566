package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultRoles is the stock role table.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		"admin":     {Wildcard},
		"developer": {"read", "write", "deploy", "api_keys:manage"},
		"viewer":    {"read"},
	}
}

// RoleManager maps each role to its permission template.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Set
	frozen bool
}

// NewRoleManager creates a manager that validates role templates against
// registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Set),
	}
}

// NewRoleManagerFromTable registers every permission named in roles, defines the
// roles and freezes both the registry and the manager.
func NewRoleManagerFromTable(roles map[string][]string) (*RoleManager, error) {
	if len(roles) == 0 {
		return nil, errors.New("role table is empty")
	}
	reg := NewRegistry()
	names := make([]string, 0, len(roles))
	for role := range roles {
		names = append(names, role)
	}
	sort.Strings(names)

	for _, role := range names {
		for _, p := range roles[role] {
			if reg.Known(p) {
				continue
			}
			if err := reg.Register(p); err != nil {
				return nil, fmt.Errorf("role %q: %w", role, err)
			}
		}
	}
	reg.Freeze()

	rm := NewRoleManager(reg)
	for _, role := range names {
		if err := rm.RegisterRole(role, roles[role]); err != nil {
			return nil, err
		}
	}
	rm.Freeze()
	return rm, nil
}

// RegisterRole defines roleName with the given permission template. Every
// permission must be registered.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}
	for _, p := range permissionNames {
		if !rm.registry.Known(p) {
			return errors.New("permission not registered: " + p)
		}
	}
	rm.roles[roleName] = NewSet(permissionNames...)
	return nil
}

// Freeze makes the manager read-only.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// HasRole reports whether roleName is defined.
func (rm *RoleManager) HasRole(roleName string) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	_, ok := rm.roles[roleName]
	return ok
}

// PermissionsForRole returns the role's template.
func (rm *RoleManager) PermissionsForRole(roleName string) (Set, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	s, ok := rm.roles[roleName]
	return s, ok
}

// Resolve returns the role template plus extra grants. Unknown roles resolve to
// the extra grants alone.
func (rm *RoleManager) Resolve(roleName string, extra []string) Set {
	base, _ := rm.PermissionsForRole(roleName)
	return base.Union(NewSet(extra...))
}

// Roles lists defined roles in sorted order.
func (rm *RoleManager) Roles() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]string, 0, len(rm.roles))
	for r := range rm.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
