// Package rbac maps role names to permission sets.
//
// Permissions are colon-scoped strings such as "users:manage". A granted
// "users:*" covers every permission in that scope and "*" covers all of
// them. Roles may inherit other roles; inheritance is resolved once in
// NewAuthorizer, which rejects unknown parents and cycles.
//
//	authz, err := rbac.NewAuthorizer(map[string]rbac.Role{
//		"user":  {Permissions: []string{"accounts:read"}},
//		"admin": {Permissions: []string{"users:*"}, Inherits: []string{"user"}},
//	})
//	if err := authz.Can("admin", "accounts:read"); err != nil {
//		// rbac.ErrInsufficientPermissions or rbac.ErrInvalidRole
//	}
package rbac
