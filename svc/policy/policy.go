// Package policy decides what a principal may do with accounts and with the
// admin surfaces.
package policy

import (
	"errors"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/rbac"
)

const (
	AccountsRead       = "accounts:read"
	AccountsCreate     = "accounts:create"
	AccountsFavorite   = "accounts:favorite"
	AccountsManage     = "accounts:manage"
	AccountsReveal     = "accounts:reveal"
	AccountsCreateTeam = "accounts:create_team"
	AccountsExport     = "accounts:export"
	AccountsImport     = "accounts:import"
	AuditLog           = "audit:log"
	AuditRead          = "audit:read"
	AuditCleanup       = "audit:cleanup"
	ProfileUpdate      = "profile:update"
	UsersManage        = "users:manage"
	APIKeysManage      = "apikeys:manage"
	APIAccess          = "api:access"
	BackupRead         = "backup:read"
	BackupUpload       = "backup:upload"
)

// DefaultRoles is the permission table for the closed {admin, user} role set.
var DefaultRoles = map[string]rbac.Role{
	string(otto.RoleUser): {
		Permissions: []string{AccountsRead, AccountsCreate, AccountsFavorite, AuditLog, ProfileUpdate},
	},
	string(otto.RoleAdmin): {
		Permissions: []string{"accounts:*", "users:*", "apikeys:*", "api:*", "audit:*", "backup:*"},
		Inherits:    []string{string(otto.RoleUser)},
	},
}

type Policy struct {
	authz *rbac.Authorizer
}

// New builds a Policy from DefaultRoles.
func New() *Policy {
	authz, err := rbac.NewAuthorizer(DefaultRoles)
	if err != nil {
		panic("policy: invalid default roles: " + err.Error())
	}
	return &Policy{authz: authz}
}

// Can reports whether the principal's role grants permission.
func (p *Policy) Can(pr otto.Principal, permission string) bool {
	if pr.Username == "" {
		return false
	}
	return p.authz.Can(string(pr.Role), permission) == nil
}

// Require is Can returning otto.ErrForbidden.
func (p *Policy) Require(pr otto.Principal, permission string) error {
	if pr.Username == "" {
		return otto.ErrUnauthorized
	}
	if err := p.authz.Can(string(pr.Role), permission); err != nil {
		return errors.Join(otto.ErrForbidden, err)
	}
	return nil
}

// CanRead allows team accounts to everyone and private accounts to their
// owner only.
func (p *Policy) CanRead(pr otto.Principal, a otto.Account) bool {
	if pr.Username == "" {
		return false
	}
	return a.Visibility == otto.VisibilityTeam || a.CreatedBy == pr.Username
}

// CanWrite covers visibility changes and deletion.
func (p *Policy) CanWrite(pr otto.Principal, a otto.Account) bool {
	if pr.Username == "" {
		return false
	}
	return a.CreatedBy == pr.Username || p.Can(pr, AccountsManage)
}

// CreationVisibility returns the visibility a new account gets. Principals
// without accounts:create_team always create private accounts; the others
// get what they asked for, team by default.
func (p *Policy) CreationVisibility(pr otto.Principal, requested otto.Visibility) otto.Visibility {
	if !p.Can(pr, AccountsCreateTeam) {
		return otto.VisibilityPrivate
	}
	if requested == "" {
		return otto.VisibilityTeam
	}
	return requested
}
