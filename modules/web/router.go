package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/pkg/clientip"
	"github.com/dmitrymomot/otto/pkg/requestid"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions selects the handlers to mount. Guard is required as soon as
// any handler other than Auth is set.
type RouterOptions struct {
	Guard *Authenticator

	// Session surface
	Auth     *AuthHandler
	Accounts Mountable
	QR       Mountable
	APIKeys  Mountable
	Users    Mountable
	Audit    Mountable
	Backup   Mountable

	// API key surface
	API Mountable
}

// Router builds the API router.
//
//	/api/auth/...          login, logout, me
//	/api/change-password
//	/api/accounts/...
//	/api/qr/parse
//	/api/api-keys/...
//	/api/users/...
//	/api/audit/...
//	/api/backup/...
//	/api/v1/...            API key surface
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware, userAgentMiddleware)

	r.Route("/api", func(api chi.Router) {
		if opts.API != nil {
			api.With(opts.Guard.RequireAPIKey).Mount("/v1", opts.API.Handle())
		}

		api.Group(func(s chi.Router) {
			if opts.Guard != nil {
				s.Use(opts.Guard.LoadSession)
			}

			if opts.Auth != nil {
				s.Mount("/auth", opts.Auth.Handle())
			}

			s.Group(func(p chi.Router) {
				if opts.Guard != nil {
					p.Use(opts.Guard.RequirePrincipal)
				}
				if opts.Auth != nil {
					p.Post("/change-password", opts.Auth.ChangePassword())
				}
				mount(p, "/accounts", opts.Accounts)
				mount(p, "/qr", opts.QR)
				mount(p, "/api-keys", opts.APIKeys)
				mount(p, "/users", opts.Users)
				mount(p, "/audit", opts.Audit)
				mount(p, "/backup", opts.Backup)
			})
		})
	})

	return r
}

func mount(r chi.Router, pattern string, m Mountable) {
	if m != nil {
		r.Mount(pattern, m.Handle())
	}
}

// wrap is handler.Wrap with the shared error handler and the given binders.
func wrap[R any](errh handler.ErrorHandler[handler.Context], h handler.HandlerFunc[handler.Context, R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](errh),
	)
}
