package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"

	"github.com/dmitrymomot/otto"
	"github.com/dmitrymomot/otto/pkg/binder"
	"github.com/dmitrymomot/otto/pkg/logger"
	"github.com/dmitrymomot/otto/pkg/requestid"
)

// ErrorDetail is the body of an error response.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

// ErrorBody wraps ErrorDetail under the "error" key.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorInfo is the classification of an error.
type ErrorInfo struct {
	StatusCode int
	Detail     ErrorDetail
	LogLevel   slog.Level
}

type kind struct {
	err     error
	status  int
	code    string
	message string
}

var kinds = []kind{
	{otto.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "authentication required"},
	{otto.ErrForbidden, http.StatusForbidden, "forbidden", "access denied"},
	{otto.ErrNotFound, http.StatusNotFound, "not_found", "resource not found"},
	{otto.ErrConflict, http.StatusConflict, "conflict", "resource already exists"},
	{otto.ErrTooManyRequests, http.StatusTooManyRequests, "too_many_requests", "too many requests, try again later"},
	{binder.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json"},
	{binder.ErrMissingContentType, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json"},
	{binder.ErrBodyTooLarge, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large"},
	{binder.ErrFailedToParseJSON, http.StatusBadRequest, "bad_request", "malformed JSON body"},
	{binder.ErrFailedToParseQuery, http.StatusBadRequest, "bad_request", "invalid query parameters"},
	{binder.ErrFailedToParsePath, http.StatusBadRequest, "bad_request", "invalid path parameters"},
}

var internalError = ErrorInfo{
	StatusCode: http.StatusInternalServerError,
	Detail:     ErrorDetail{Code: "internal_error", Message: "internal server error"},
	LogLevel:   slog.LevelError,
}

// Classify maps err to a status code and a client-safe body.
func Classify(err error) ErrorInfo {
	if err == nil || errors.Is(err, otto.ErrDecryption) {
		return internalError
	}

	var ve otto.ValidationError
	if errors.As(err, &ve) {
		details := make(map[string][]string, len(ve))
		maps.Copy(details, ve)
		return ErrorInfo{
			StatusCode: http.StatusBadRequest,
			Detail:     ErrorDetail{Code: "validation_error", Message: ve.Error(), Details: details},
			LogLevel:   slog.LevelWarn,
		}
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			info := ErrorInfo{
				StatusCode: k.status,
				Detail:     ErrorDetail{Code: k.code, Message: k.message},
				LogLevel:   slog.LevelWarn,
			}
			if msg, ok := otto.PublicMessage(err); ok {
				info.Detail.Message = msg
			}
			return info
		}
	}

	return internalError
}

func renderError(w http.ResponseWriter, info ErrorInfo) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(info.StatusCode)
	return json.NewEncoder(w).Encode(ErrorBody{Error: info.Detail})
}

// NewErrorHandler returns an ErrorHandler that logs the full error and
// renders the classified JSON body.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx Context, err error) {
		info := Classify(err)
		r := ctx.Request()
		id, _ := requestid.Extract(r.Context())

		log.LogAttrs(r.Context(), info.LogLevel, "request error",
			logger.RequestID(id),
			logger.Error(err),
			slog.Int("status_code", info.StatusCode),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("http"),
		)

		if rerr := renderError(ctx.ResponseWriter(), info); rerr != nil {
			log.LogAttrs(r.Context(), slog.LevelError, "failed to render error",
				logger.RequestID(id),
				logger.Error(rerr),
				logger.Event("render_error"),
			)
		}
	}
}
