// Package handler turns typed functions into http.HandlerFunc values.
//
// A HandlerFunc receives a Context and a request struct filled by the
// configured binders and returns a Response:
//
//	type deleteRequest struct {
//		ID int64 `path:"id"`
//	}
//
//	func (h *accountsHandler) delete(ctx handler.Context, req deleteRequest) handler.Response {
//		if err := h.svc.Delete(ctx, req.ID); err != nil {
//			return handler.Error(err)
//		}
//		return handler.Empty()
//	}
//
//	r.Delete("/accounts/{id}", handler.Wrap(h.delete,
//		handler.WithBinders[handler.Context, deleteRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[handler.Context, deleteRequest](errHandler),
//	))
//
// Binding failures, Error responses and render failures all go through the
// ErrorHandler. NewErrorHandler maps the otto error kinds to HTTP statuses and
// writes a JSON body of the form {"error":{"code":..,"message":..,"details":..}}.
// Decryption failures and unknown errors are reported as a generic
// internal_error; their detail only reaches the log.
package handler
