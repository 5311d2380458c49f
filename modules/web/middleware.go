package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/pkg/cookie"
	"github.com/dmitrymomot/otto/pkg/jwt"
	"github.com/dmitrymomot/otto/svc/session"
)

// SessionService is the part of session.Service used by the web surface.
type SessionService interface {
	Authenticate(ctx context.Context, username, password string) (otto.Principal, error)
	CreateToken(pr otto.Principal) (string, time.Time, error)
	VerifyToken(token string) (otto.Principal, error)
	TTL() time.Duration
	ChangePassword(ctx context.Context, pr otto.Principal, in session.ChangePasswordInput) error
	Logout(ctx context.Context, pr otto.Principal)
}

// KeyVerifier resolves a raw API key to its owner.
type KeyVerifier interface {
	Verify(ctx context.Context, raw string) (otto.Principal, error)
}

// Authenticator puts the caller's principal into the request context.
type Authenticator struct {
	sessions SessionService
	keys     KeyVerifier
	cookie   *cookie.Manager
	errh     handler.ErrorHandler[handler.Context]
}

func NewAuthenticator(sessions SessionService, keys KeyVerifier, c *cookie.Manager, errh handler.ErrorHandler[handler.Context]) *Authenticator {
	return &Authenticator{sessions: sessions, keys: keys, cookie: c, errh: errh}
}

// LoadSession resolves the session cookie when one is present and valid.
// Other requests pass through without a principal.
func (a *Authenticator) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := a.cookie.Get(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		pr, err := a.sessions.VerifyToken(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(otto.WithPrincipal(r.Context(), pr)))
	})
}

// RequirePrincipal rejects requests LoadSession could not authenticate.
func (a *Authenticator) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := otto.PrincipalFromContext(r.Context()); !ok {
			a.errh(handler.NewContext(w, r), otto.NewError(otto.ErrUnauthorized, "not authenticated"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIKey authenticates the Bearer API key of every request.
func (a *Authenticator) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := jwt.BearerTokenExtractor(r)
		if err != nil {
			a.errh(handler.NewContext(w, r), errors.Join(otto.NewError(otto.ErrUnauthorized, "API key required"), err))
			return
		}
		pr, err := a.keys.Verify(r.Context(), raw)
		if err != nil {
			if errors.Is(err, otto.ErrUnauthorized) {
				err = errors.Join(otto.NewError(otto.ErrUnauthorized, "invalid or expired API key"), err)
			}
			a.errh(handler.NewContext(w, r), err)
			return
		}
		next.ServeHTTP(w, r.WithContext(otto.WithPrincipal(r.Context(), pr)))
	})
}

const maxUserAgentLength = 512

type userAgentKey struct{}

func userAgentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()
		if len(ua) > maxUserAgentLength {
			ua = ua[:maxUserAgentLength]
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userAgentKey{}, ua)))
	})
}

// UserAgent is an audit extractor for the caller's User-Agent header.
func UserAgent(ctx context.Context) (string, bool) {
	ua, _ := ctx.Value(userAgentKey{}).(string)
	return ua, ua != ""
}

func principal(ctx context.Context) otto.Principal {
	pr, _ := otto.PrincipalFromContext(ctx)
	return pr
}
