package rbac

import (
	"fmt"
	"slices"
	"strings"
)

const (
	Wildcard  = "*"
	separator = ":"
)

// Role is a set of permissions plus the roles it inherits from.
type Role struct {
	Permissions []string
	Inherits    []string
}

// Authorizer answers permission checks. It is immutable and safe for
// concurrent use.
type Authorizer struct {
	permissions map[string][]string
}

// NewAuthorizer flattens role inheritance.
func NewAuthorizer(roles map[string]Role) (*Authorizer, error) {
	a := &Authorizer{permissions: make(map[string][]string, len(roles))}
	for name := range roles {
		perms, err := resolve(name, roles, nil)
		if err != nil {
			return nil, err
		}
		slices.Sort(perms)
		a.permissions[name] = slices.Compact(perms)
	}
	return a, nil
}

func resolve(name string, roles map[string]Role, path []string) ([]string, error) {
	if slices.Contains(path, name) {
		return nil, fmt.Errorf("%w: %s", ErrCircularInheritance, strings.Join(append(path, name), " -> "))
	}
	role, ok := roles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParent, name)
	}

	perms := slices.Clone(role.Permissions)
	for _, parent := range role.Inherits {
		inherited, err := resolve(parent, roles, append(path, name))
		if err != nil {
			return nil, err
		}
		perms = append(perms, inherited...)
	}
	return perms, nil
}

// Can returns nil when role holds permission.
func (a *Authorizer) Can(role, permission string) error {
	granted, ok := a.permissions[role]
	if !ok {
		return ErrInvalidRole
	}
	for _, g := range granted {
		if matches(g, permission) {
			return nil
		}
	}
	return ErrInsufficientPermissions
}

// CanAll returns nil when role holds every permission.
func (a *Authorizer) CanAll(role string, permissions ...string) error {
	for _, p := range permissions {
		if err := a.Can(role, p); err != nil {
			return err
		}
	}
	return nil
}

// Permissions returns the flattened permissions of role.
func (a *Authorizer) Permissions(role string) []string {
	return slices.Clone(a.permissions[role])
}

func matches(granted, required string) bool {
	if granted == Wildcard || granted == required {
		return true
	}
	scope, ok := strings.CutSuffix(granted, separator+Wildcard)
	return ok && strings.HasPrefix(required, scope+separator)
}
