package otto

import "context"

// Source tells how a principal was authenticated.
type Source string

const (
	SourceSession Source = "session"
	SourceAPIKey  Source = "api_key"
)

// Principal is an authenticated identity.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Source   Source `json:"-"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type principalKey struct{}

// WithPrincipal stores the principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Username != ""
}

// UsernameFromContext is a context extractor for loggers and audit events.
func UsernameFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.Username, ok
}
