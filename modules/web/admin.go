package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/pkg/binder"
	"github.com/dmitrymomot/otto/pkg/blobstore"
	"github.com/dmitrymomot/otto/svc/apikey"
	"github.com/dmitrymomot/otto/svc/auditlog"
	"github.com/dmitrymomot/otto/svc/backup"
	"github.com/dmitrymomot/otto/svc/users"
)

type APIKeyService interface {
	List(ctx context.Context, pr otto.Principal) ([]otto.APIKey, error)
	Create(ctx context.Context, pr otto.Principal, in apikey.CreateInput) (apikey.Issued, error)
	Revoke(ctx context.Context, pr otto.Principal, id int64) error
	SetActive(ctx context.Context, pr otto.Principal, id int64, active bool) (otto.APIKey, error)
}

// APIKeysHandler lets admins manage their own API keys.
type APIKeysHandler struct {
	svc  APIKeyService
	errh handler.ErrorHandler[handler.Context]
}

func NewAPIKeysHandler(svc APIKeyService, errh handler.ErrorHandler[handler.Context]) *APIKeysHandler {
	return &APIKeysHandler{svc: svc, errh: errh}
}

func (h *APIKeysHandler) Handle() http.Handler {
	r := chi.NewRouter()
	path := binder.Path(chi.URLParam)

	r.Get("/", wrap(h.errh, h.list))
	r.Post("/", wrap(h.errh, h.create, binder.JSON()))
	r.Delete("/{id}", wrap(h.errh, h.revoke, path))
	r.Patch("/{id}", wrap(h.errh, h.toggle, path, binder.JSON()))

	return r
}

func (h *APIKeysHandler) list(ctx handler.Context, _ struct{}) handler.Response {
	keys, err := h.svc.List(ctx, principal(ctx))
	if err != nil {
		return handler.Error(err)
	}
	if keys == nil {
		keys = []otto.APIKey{}
	}
	return handler.JSON(keys)
}

func (h *APIKeysHandler) create(ctx handler.Context, in apikey.CreateInput) handler.Response {
	issued, err := h.svc.Create(ctx, principal(ctx), in)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Created(issued)
}

type keyRequest struct {
	ID int64 `path:"id" json:"-"`
}

func (h *APIKeysHandler) revoke(ctx handler.Context, req keyRequest) handler.Response {
	if err := h.svc.Revoke(ctx, principal(ctx), req.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

type toggleRequest struct {
	ID       int64 `path:"id" json:"-"`
	IsActive *bool `json:"is_active"`
}

func (h *APIKeysHandler) toggle(ctx handler.Context, req toggleRequest) handler.Response {
	if req.IsActive == nil {
		return handler.Error(otto.Invalid("is_active", "field is required"))
	}
	key, err := h.svc.SetActive(ctx, principal(ctx), req.ID, *req.IsActive)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(key)
}

type UserService interface {
	List(ctx context.Context, pr otto.Principal) ([]otto.User, error)
	Create(ctx context.Context, pr otto.Principal, in users.CreateInput) (otto.User, error)
	CreateBulk(ctx context.Context, pr otto.Principal, in users.BulkInput) (users.BulkResult, error)
	Delete(ctx context.Context, pr otto.Principal, id int64) error
}

// UsersHandler is the admin user management surface.
type UsersHandler struct {
	svc  UserService
	errh handler.ErrorHandler[handler.Context]
}

func NewUsersHandler(svc UserService, errh handler.ErrorHandler[handler.Context]) *UsersHandler {
	return &UsersHandler{svc: svc, errh: errh}
}

func (h *UsersHandler) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", wrap(h.errh, h.list))
	r.Post("/", wrap(h.errh, h.create, binder.JSON()))
	r.Post("/bulk", wrap(h.errh, h.bulk, binder.JSON()))
	r.Delete("/{id}", wrap(h.errh, h.delete, binder.Path(chi.URLParam)))

	return r
}

func (h *UsersHandler) list(ctx handler.Context, _ struct{}) handler.Response {
	list, err := h.svc.List(ctx, principal(ctx))
	if err != nil {
		return handler.Error(err)
	}
	if list == nil {
		list = []otto.User{}
	}
	return handler.JSON(list)
}

func (h *UsersHandler) create(ctx handler.Context, in users.CreateInput) handler.Response {
	u, err := h.svc.Create(ctx, principal(ctx), in)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Created(u)
}

func (h *UsersHandler) bulk(ctx handler.Context, in users.BulkInput) handler.Response {
	res, err := h.svc.CreateBulk(ctx, principal(ctx), in)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Created(res)
}

type userRequest struct {
	ID int64 `path:"id" json:"-"`
}

func (h *UsersHandler) delete(ctx handler.Context, req userRequest) handler.Response {
	if err := h.svc.Delete(ctx, principal(ctx), req.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

type AuditService interface {
	List(ctx context.Context, pr otto.Principal, q auditlog.Query) (auditlog.Page, error)
	Log(ctx context.Context, pr otto.Principal, in auditlog.LogInput) error
	Cleanup(ctx context.Context, pr otto.Principal) (auditlog.CleanupResult, error)
}

type AuditHandler struct {
	svc  AuditService
	errh handler.ErrorHandler[handler.Context]
}

func NewAuditHandler(svc AuditService, errh handler.ErrorHandler[handler.Context]) *AuditHandler {
	return &AuditHandler{svc: svc, errh: errh}
}

func (h *AuditHandler) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", wrap(h.errh, h.list, binder.Query()))
	r.Post("/log", wrap(h.errh, h.log, binder.JSON()))
	r.Post("/cleanup", wrap(h.errh, h.cleanup))

	return r
}

func (h *AuditHandler) list(ctx handler.Context, q auditlog.Query) handler.Response {
	page, err := h.svc.List(ctx, principal(ctx), q)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(page)
}

func (h *AuditHandler) log(ctx handler.Context, in auditlog.LogInput) handler.Response {
	if err := h.svc.Log(ctx, principal(ctx), in); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (h *AuditHandler) cleanup(ctx handler.Context, _ struct{}) handler.Response {
	res, err := h.svc.Cleanup(ctx, principal(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

type BackupService interface {
	Snapshot(ctx context.Context, pr otto.Principal) (backup.Snapshot, error)
	Upload(ctx context.Context, pr otto.Principal) (blobstore.Object, error)
}

// BackupHandler serves admin snapshots as a download or an S3 upload.
type BackupHandler struct {
	svc  BackupService
	errh handler.ErrorHandler[handler.Context]
}

func NewBackupHandler(svc BackupService, errh handler.ErrorHandler[handler.Context]) *BackupHandler {
	return &BackupHandler{svc: svc, errh: errh}
}

func (h *BackupHandler) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/", wrap(h.errh, h.download))
	r.Post("/s3", wrap(h.errh, h.upload))
	return r
}

func (h *BackupHandler) download(ctx handler.Context, _ struct{}) handler.Response {
	snap, err := h.svc.Snapshot(ctx, principal(ctx))
	if err != nil {
		return handler.Error(err)
	}
	body, err := snap.Encode()
	if err != nil {
		return handler.Error(err)
	}
	return handler.Attachment(snap.Filename(), backup.ContentType, body)
}

func (h *BackupHandler) upload(ctx handler.Context, _ struct{}) handler.Response {
	obj, err := h.svc.Upload(ctx, principal(ctx))
	if err != nil {
		return handler.Error(err)
	}
	return handler.Created(obj)
}
