package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/handler"
	"github.com/dmitrymomot/otto/pkg/binder"
	"github.com/dmitrymomot/otto/pkg/logger"
)

type updateRequest struct {
	ID         int64  `path:"id"`
	Visibility string `json:"visibility"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestWrap_BindsAndRenders(t *testing.T) {
	t.Parallel()

	h := func(ctx handler.Context, req updateRequest) handler.Response {
		return handler.JSON(req)
	}

	router := chi.NewRouter()
	router.Patch("/accounts/{id}", handler.Wrap(h,
		handler.WithBinders[handler.Context, updateRequest](binder.Path(chi.URLParam), binder.JSON()),
	))

	r := httptest.NewRequest(http.MethodPatch, "/accounts/9", strings.NewReader(`{"visibility":"private"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ID":9,"visibility":"private"}`, w.Body.String())
}

func TestWrap_SkipsInapplicableBinder(t *testing.T) {
	t.Parallel()

	called := false
	h := handler.Wrap(func(ctx handler.Context, req updateRequest) handler.Response {
		called = true
		return handler.Empty()
	}, handler.WithBinders[handler.Context, updateRequest](binder.JSON()))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestWrap_BindError(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(ctx handler.Context, req updateRequest) handler.Response {
		t.Fatal("handler must not run")
		return nil
	}, handler.WithBinders[handler.Context, updateRequest](binder.JSON()))

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"visibility":`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Code)
}

func TestWrap_NilResponse(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response { return nil })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", decodeError(t, w).Code)
}

func TestErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"unauthorized", otto.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "authentication required"},
		{"forbidden", otto.ErrForbidden, http.StatusForbidden, "forbidden", "access denied"},
		{"not found with message", errors.Join(otto.NewError(otto.ErrNotFound, "account not found"), errors.New("no rows")), http.StatusNotFound, "not_found", "account not found"},
		{"conflict", otto.ErrConflict, http.StatusConflict, "conflict", "resource already exists"},
		{"rate limited", otto.ErrTooManyRequests, http.StatusTooManyRequests, "too_many_requests", "too many requests, try again later"},
		{"decryption", errors.Join(otto.ErrDecryption, errors.New("cipher: message authentication failed")), http.StatusInternalServerError, "internal_error", "internal server error"},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError, "internal_error", "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
				return handler.Error(tt.err)
			})
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, w.Code)
			detail := decodeError(t, w)
			assert.Equal(t, tt.code, detail.Code)
			assert.Equal(t, tt.message, detail.Message)
			assert.NotContains(t, w.Body.String(), "cipher")
			assert.NotContains(t, w.Body.String(), "no rows")
		})
	}
}

func TestErrorResponses_Validation(t *testing.T) {
	t.Parallel()

	ve := otto.Invalid("digits", "must be between 6 and 8")
	h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
		return handler.Error(ve)
	})
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, "validation_error", detail.Code)
	assert.Equal(t, map[string][]string{"digits": {"must be between 6 and 8"}}, detail.Details)
}

func TestNewErrorHandler_Logs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatJSON), logger.WithLevel(slog.LevelDebug))

	h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
		return handler.Error(errors.Join(otto.ErrDecryption, errors.New("tag mismatch")))
	}, handler.WithErrorHandler[handler.Context, struct{}](handler.NewErrorHandler(log)))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/api/v1/totp/generate", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "tag mismatch")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.NotContains(t, w.Body.String(), "tag mismatch")
}

func TestResponses(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		require.NoError(t, handler.Created(map[string]int{"id": 1}).Render(w, httptest.NewRequest(http.MethodPost, "/", nil)))
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"id":1}`, w.Body.String())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		require.NoError(t, handler.Empty().Render(w, httptest.NewRequest(http.MethodDelete, "/", nil)))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("attachment", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		require.NoError(t, handler.Attachment("export.csv", "text/csv", []byte("id\n1\n")).Render(w, httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=export.csv`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "id\n1\n", w.Body.String())
	})
}
