package otto

import (
	"strings"
	"time"

	"github.com/dmitrymomot/otto/pkg/totp"
)

// Role is the closed set of user roles. The legacy "viewer" role is not
// accepted anymore.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", Invalid("role", "must be admin or user")
	}
	return r, nil
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

func (r Role) String() string { return string(r) }

// Visibility controls who can read an account.
type Visibility string

const (
	VisibilityTeam    Visibility = "team"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility validates a visibility value. Empty input yields an empty
// Visibility so callers can apply their own default.
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(strings.ToLower(strings.TrimSpace(s)))
	if v == "" || v.Valid() {
		return v, nil
	}
	return "", Invalid("visibility", "must be team or private")
}

func (v Visibility) Valid() bool {
	return v == VisibilityTeam || v == VisibilityPrivate
}

func (v Visibility) String() string { return string(v) }

// Account is a stored TOTP credential. Secret holds the ciphertext blob and
// never leaves the server.
type Account struct {
	ID             int64          `json:"id"`
	Label          string         `json:"label"`
	Issuer         string         `json:"issuer"`
	Secret         string         `json:"-"`
	Algorithm      totp.Algorithm `json:"algorithm"`
	Digits         int            `json:"digits"`
	Period         int            `json:"period"`
	Visibility     Visibility     `json:"visibility"`
	CreatedBy      string         `json:"created_by"`
	IconIdentifier string         `json:"icon_identifier,omitempty"`
	Category       string         `json:"category,omitempty"`
	ViewCount      int64          `json:"view_count"`
	CopyCount      int64          `json:"copy_count"`
	IsFavorite     bool           `json:"is_favorite"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Params returns the code derivation parameters of the account.
func (a Account) Params() totp.Params {
	return totp.Params{Algorithm: a.Algorithm, Digits: a.Digits, Period: a.Period}
}

// Summary returns the redacted view used in code responses.
func (a Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Label: a.Label, Issuer: a.Issuer}
}

// AccountSummary identifies an account without any secret material.
type AccountSummary struct {
	ID     int64  `json:"id"`
	Label  string `json:"label"`
	Issuer string `json:"issuer"`
}

// Counter selects one of the per-account usage counters.
type Counter string

const (
	CounterView Counter = "view"
	CounterCopy Counter = "copy"
)

func ParseCounter(s string) (Counter, error) {
	switch c := Counter(strings.ToLower(strings.TrimSpace(s))); c {
	case CounterView, CounterCopy:
		return c, nil
	}
	return "", Invalid("type", "must be view or copy")
}

// User is a login identity.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedBy    string     `json:"created_by,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// APIKey is a bearer credential bound to one user. Key holds the raw token
// and is only ever rendered once, at creation.
type APIKey struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Name       string     `json:"name"`
	Key        string     `json:"-"`
	IsActive   bool       `json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the key has an expiry at or before now.
func (k APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// KeyOwner is an API key joined with the state of its owning user.
type KeyOwner struct {
	Key       APIKey
	Username  string
	Role      Role
	UserAlive bool
}

// AccountScope selects which accounts a listing returns for its viewer.
type AccountScope string

const (
	// ScopeReadable is every team account plus the viewer's own accounts.
	ScopeReadable AccountScope = "all"
	// ScopeTeam is every team account.
	ScopeTeam AccountScope = "team"
	// ScopePrivate is the viewer's own private accounts.
	ScopePrivate AccountScope = "private"
	// ScopeOwned is every account the viewer created.
	ScopeOwned AccountScope = "owned"
)

func ParseAccountScope(s string) (AccountScope, error) {
	switch sc := AccountScope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScopeReadable, nil
	case ScopeReadable, ScopeTeam, ScopePrivate:
		return sc, nil
	}
	return "", Invalid("filter", "must be all, team or private")
}

// AccountFilter narrows an account listing. Search matches label or issuer,
// Issuer matches the issuer only; both are case-insensitive substrings.
type AccountFilter struct {
	Viewer   string
	ViewerID int64
	Scope    AccountScope
	Search   string
	Issuer   string
}
