package permission

import "sort"

// Wildcard grants every permission.
const Wildcard = "*"

// AdminRole always passes permission checks.
const AdminRole = "admin"

// Set is an immutable-by-convention set of permission names.
type Set map[string]struct{}

// NewSet builds a set from names, skipping empty strings.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether the set grants p, directly or through the wildcard.
func (s Set) Has(p string) bool {
	if len(s) == 0 {
		return false
	}
	if _, ok := s[Wildcard]; ok {
		return true
	}
	_, ok := s[p]
	return ok
}

// Union returns a new set holding the members of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// Slice returns the members sorted.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasPermission is the route-level check: the admin role or any set granting p
// passes.
func HasPermission(role string, perms []string, p string) bool {
	if role == AdminRole {
		return true
	}
	for _, have := range perms {
		if have == Wildcard || have == p {
			return true
		}
	}
	return false
}
