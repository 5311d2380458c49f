package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto/pkg/rbac"
)

func newAuthorizer(t *testing.T) *rbac.Authorizer {
	t.Helper()
	a, err := rbac.NewAuthorizer(map[string]rbac.Role{
		"user":  {Permissions: []string{"accounts:read", "accounts:create"}},
		"admin": {Permissions: []string{"users:*", "audit:read"}, Inherits: []string{"user"}},
		"root":  {Permissions: []string{rbac.Wildcard}},
	})
	require.NoError(t, err)
	return a
}

func TestAuthorizer_Can(t *testing.T) {
	t.Parallel()
	a := newAuthorizer(t)

	tests := []struct {
		role, perm string
		want       error
	}{
		{"user", "accounts:read", nil},
		{"user", "users:manage", rbac.ErrInsufficientPermissions},
		{"admin", "accounts:create", nil},
		{"admin", "users:manage", nil},
		{"admin", "users", rbac.ErrInsufficientPermissions},
		{"admin", "usersx:manage", rbac.ErrInsufficientPermissions},
		{"root", "anything:at:all", nil},
		{"viewer", "accounts:read", rbac.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.role+" "+tt.perm, func(t *testing.T) {
			t.Parallel()
			err := a.Can(tt.role, tt.perm)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorizer_CanAll(t *testing.T) {
	t.Parallel()
	a := newAuthorizer(t)

	assert.NoError(t, a.CanAll("admin", "accounts:read", "audit:read"))
	assert.ErrorIs(t, a.CanAll("user", "accounts:read", "audit:read"), rbac.ErrInsufficientPermissions)
	assert.Equal(t, []string{"accounts:create", "accounts:read", "audit:read", "users:*"}, a.Permissions("admin"))
}

func TestNewAuthorizer_InvalidInheritance(t *testing.T) {
	t.Parallel()

	_, err := rbac.NewAuthorizer(map[string]rbac.Role{
		"a": {Inherits: []string{"b"}},
		"b": {Inherits: []string{"a"}},
	})
	require.ErrorIs(t, err, rbac.ErrCircularInheritance)

	_, err = rbac.NewAuthorizer(map[string]rbac.Role{
		"a": {Inherits: []string{"missing"}},
	})
	require.ErrorIs(t, err, rbac.ErrUnknownParent)
}
