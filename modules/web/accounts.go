package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/pkg/binder"
	"github.com/dmitrymomot/otto/pkg/otpauth"
	"github.com/dmitrymomot/otto/svc/accounts"
)

// AccountService is the part of accounts.Service used by the web surface.
type AccountService interface {
	ListWithCodes(ctx context.Context, pr otto.Principal, q accounts.ListQuery) ([]accounts.AccountWithCode, error)
	Create(ctx context.Context, pr otto.Principal, in accounts.CreateInput) (otto.Account, error)
	UpdateVisibility(ctx context.Context, pr otto.Principal, id int64, visibility string) (otto.Account, error)
	Delete(ctx context.Context, pr otto.Principal, id int64) error
	Increment(ctx context.Context, pr otto.Principal, id int64, counter string) error
	SetFavorite(ctx context.Context, pr otto.Principal, id int64, favorite bool) error
	Provision(ctx context.Context, pr otto.Principal, id int64) (accounts.Provisioning, error)
	GetCode(ctx context.Context, pr otto.Principal, ref accounts.Ref) (accounts.CodeResult, error)
	Export(ctx context.Context, pr otto.Principal, in accounts.ExportInput) (accounts.Export, error)
	Import(ctx context.Context, pr otto.Principal, in accounts.ImportInput) (accounts.ImportResult, error)
}

type AccountsHandler struct {
	svc  AccountService
	errh handler.ErrorHandler[handler.Context]
}

func NewAccountsHandler(svc AccountService, errh handler.ErrorHandler[handler.Context]) *AccountsHandler {
	return &AccountsHandler{svc: svc, errh: errh}
}

func (h *AccountsHandler) Handle() http.Handler {
	r := chi.NewRouter()
	path := binder.Path(chi.URLParam)

	r.Get("/", wrap(h.errh, h.list, binder.Query()))
	r.Post("/", wrap(h.errh, h.create, binder.JSON()))
	r.Route("/{id}", func(r chi.Router) {
		r.Patch("/", wrap(h.errh, h.update, path, binder.JSON()))
		r.Delete("/", wrap(h.errh, h.delete, path))
		r.Post("/increment", wrap(h.errh, h.increment, path, binder.JSON()))
		r.Post("/favorite", wrap(h.errh, h.favorite, path))
		r.Delete("/favorite", wrap(h.errh, h.unfavorite, path))
		r.Get("/qr", wrap(h.errh, h.qr, path))
	})

	return r
}

func (h *AccountsHandler) list(ctx handler.Context, q accounts.ListQuery) handler.Response {
	list, err := h.svc.ListWithCodes(ctx, principal(ctx), q)
	if err != nil {
		return handler.Error(err)
	}
	if list == nil {
		list = []accounts.AccountWithCode{}
	}
	return handler.JSON(list)
}

func (h *AccountsHandler) create(ctx handler.Context, in accounts.CreateInput) handler.Response {
	a, err := h.svc.Create(ctx, principal(ctx), in)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Created(a)
}

type accountRequest struct {
	ID int64 `path:"id" json:"-"`
}

type updateRequest struct {
	ID         int64  `path:"id" json:"-"`
	Visibility string `json:"visibility"`
}

func (h *AccountsHandler) update(ctx handler.Context, req updateRequest) handler.Response {
	a, err := h.svc.UpdateVisibility(ctx, principal(ctx), req.ID, req.Visibility)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(a)
}

func (h *AccountsHandler) delete(ctx handler.Context, req accountRequest) handler.Response {
	if err := h.svc.Delete(ctx, principal(ctx), req.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

type incrementRequest struct {
	ID   int64  `path:"id" json:"-"`
	Type string `json:"type"`
}

func (h *AccountsHandler) increment(ctx handler.Context, req incrementRequest) handler.Response {
	if err := h.svc.Increment(ctx, principal(ctx), req.ID, req.Type); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (h *AccountsHandler) favorite(ctx handler.Context, req accountRequest) handler.Response {
	if err := h.svc.SetFavorite(ctx, principal(ctx), req.ID, true); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (h *AccountsHandler) unfavorite(ctx handler.Context, req accountRequest) handler.Response {
	if err := h.svc.SetFavorite(ctx, principal(ctx), req.ID, false); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (h *AccountsHandler) qr(ctx handler.Context, req accountRequest) handler.Response {
	p, err := h.svc.Provision(ctx, principal(ctx), req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(p)
}

// QRHandler decodes otpauth URIs scanned by the client. Nothing is stored.
type QRHandler struct {
	errh handler.ErrorHandler[handler.Context]
}

func NewQRHandler(errh handler.ErrorHandler[handler.Context]) *QRHandler {
	return &QRHandler{errh: errh}
}

func (h *QRHandler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/parse", wrap(h.errh, h.parse, binder.JSON()))
	return r
}

type parseRequest struct {
	URL string `json:"url"`
}

func (h *QRHandler) parse(ctx handler.Context, req parseRequest) handler.Response {
	key, err := accounts.ParseURI(req.URL)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(parsedKey{Key: key, Icon: accounts.DetectIcon(key.Issuer)})
}

type parsedKey struct {
	otpauth.Key
	Icon string `json:"icon_identifier,omitempty"`
}
