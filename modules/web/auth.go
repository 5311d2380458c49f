package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/pkg/binder"
	"github.com/dmitrymomot/otto/pkg/clientip"
	"github.com/dmitrymomot/otto/pkg/cookie"
	"github.com/dmitrymomot/otto/pkg/ratelimiter"
	"github.com/dmitrymomot/otto/svc/session"
)

// AuthHandler serves login, logout, the current principal and password
// changes.
type AuthHandler struct {
	sessions SessionService
	cookie   *cookie.Manager
	limiter  *ratelimiter.Limiter
	errh     handler.ErrorHandler[handler.Context]
}

// NewAuthHandler builds the auth endpoints. A nil limiter disables login
// throttling.
func NewAuthHandler(sessions SessionService, c *cookie.Manager, limiter *ratelimiter.Limiter, errh handler.ErrorHandler[handler.Context]) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookie: c, limiter: limiter, errh: errh}
}

func (h *AuthHandler) Handle() http.Handler {
	r := chi.NewRouter()

	login := http.Handler(wrap(h.errh, h.login, binder.JSON()))
	if h.limiter != nil {
		login = ratelimiter.Middleware(h.limiter, loginKey, h.deny)(login)
	}
	r.Method(http.MethodPost, "/login", login)
	r.Post("/logout", wrap(h.errh, h.logout))
	r.Get("/me", wrap(h.errh, h.me))

	return r
}

// ChangePassword serves POST /api/change-password.
func (h *AuthHandler) ChangePassword() http.HandlerFunc {
	return wrap(h.errh, h.changePassword, binder.JSON())
}

func loginKey(r *http.Request) string {
	ip := clientip.FromContext(r.Context())
	if ip == "" {
		ip = clientip.GetIP(r)
	}
	return "login:" + ip
}

func (h *AuthHandler) deny(w http.ResponseWriter, r *http.Request, _ ratelimiter.Result, err error) {
	if err == nil {
		err = otto.NewError(otto.ErrTooManyRequests, "too many login attempts, try again later")
	}
	h.errh(handler.NewContext(w, r), err)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User      otto.Principal `json:"user"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func (h *AuthHandler) login(ctx handler.Context, req LoginRequest) handler.Response {
	pr, err := h.sessions.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return handler.Error(err)
	}

	token, expiresAt, err := h.sessions.CreateToken(pr)
	if err != nil {
		return handler.Error(err)
	}
	h.cookie.Set(ctx.ResponseWriter(), ctx.Request(), token, h.sessions.TTL())

	return handler.JSON(LoginResponse{User: pr, ExpiresAt: expiresAt})
}

func (h *AuthHandler) logout(ctx handler.Context, _ struct{}) handler.Response {
	h.sessions.Logout(ctx, principal(ctx))
	h.cookie.Delete(ctx.ResponseWriter(), ctx.Request())
	return handler.Empty()
}

func (h *AuthHandler) me(ctx handler.Context, _ struct{}) handler.Response {
	pr, ok := otto.PrincipalFromContext(ctx)
	if !ok {
		return handler.Error(otto.NewError(otto.ErrUnauthorized, "not authenticated"))
	}
	return handler.JSON(pr)
}

func (h *AuthHandler) changePassword(ctx handler.Context, req session.ChangePasswordInput) handler.Response {
	if err := h.sessions.ChangePassword(ctx, principal(ctx), req); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}
