package handler

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/otto/pkg/binder"
)

// HandlerFunc handles a bound request. C must implement Context.
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses HTTP requests into typed values.
type Bind func(r *http.Request, v any) error

// ErrorHandler handles errors from binding, handlers or rendering.
type ErrorHandler[C Context] func(ctx C, err error)

type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	binders      []Bind
	errorHandler ErrorHandler[C]
}

// WithBinders appends request binders applied in order. Binders returning
// binder.ErrBinderNotApplicable are skipped.
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.binders = append(c.binders, binders...)
	}
}

func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

func defaultErrorHandler[C Context](ctx C, err error) {
	_ = renderError(ctx.ResponseWriter(), Classify(err))
}

// Wrap converts a typed HandlerFunc to http.HandlerFunc. Binders run in
// order before h; a nil Response is reported as ErrNilResponse.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{errorHandler: defaultErrorHandler[C]}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := NewContext(w, r).(C)
		if !ok {
			panic("handler: unsupported context type")
		}

		var req R
		for _, bind := range cfg.binders {
			err := bind(r, &req)
			if errors.Is(err, binder.ErrBinderNotApplicable) {
				continue
			}
			if err != nil {
				cfg.errorHandler(ctx, err)
				return
			}
		}

		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
