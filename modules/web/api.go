package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/pkg/binder"
	"github.com/dmitrymomot/otto/svc/accounts"
)

// Content types of the file-like export formats.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeYAML = "application/yaml; charset=utf-8"
)

// maxImportBody fits MaxImportItems accounts with generous labels.
const maxImportBody = 4 << 20

// APIHandler is the API key surface.
type APIHandler struct {
	svc  AccountService
	errh handler.ErrorHandler[handler.Context]
}

func NewAPIHandler(svc AccountService, errh handler.ErrorHandler[handler.Context]) *APIHandler {
	return &APIHandler{svc: svc, errh: errh}
}

func (h *APIHandler) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/totp/generate", wrap(h.errh, h.generate, binder.Query()))
	r.Get("/accounts/export", wrap(h.errh, h.export, binder.Query()))
	r.Post("/accounts/import", wrap(h.errh, h.importAccounts,
		binder.JSON(binder.WithMaxSize(maxImportBody), binder.AllowUnknownFields()),
	))

	return r
}

type generateRequest struct {
	AccountID   string `query:"account_id"`
	AccountCode string `query:"account_code"`
}

func (h *APIHandler) generate(ctx handler.Context, req generateRequest) handler.Response {
	ref, err := accounts.ParseRef(req.AccountID, req.AccountCode)
	if err != nil {
		return handler.Error(err)
	}
	res, err := h.svc.GetCode(ctx, principal(ctx), ref)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

func (h *APIHandler) export(ctx handler.Context, in accounts.ExportInput) handler.Response {
	e, err := h.svc.Export(ctx, principal(ctx), in)
	if err != nil {
		return handler.Error(err)
	}

	switch e.Format {
	case accounts.FormatCSV:
		return handler.Attachment(e.Filename(), ContentTypeCSV, e.CSV())
	case accounts.FormatYAML:
		body, err := e.YAML()
		if err != nil {
			return handler.Error(err)
		}
		return handler.Attachment(e.Filename(), ContentTypeYAML, body)
	default:
		return handler.JSON(e.Document())
	}
}

func (h *APIHandler) importAccounts(ctx handler.Context, in accounts.ImportInput) handler.Response {
	res, err := h.svc.Import(ctx, principal(ctx), in)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}
