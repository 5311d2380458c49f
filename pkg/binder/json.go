package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONSize is the default maximum size for JSON request bodies (1MB).
const DefaultMaxJSONSize = 1 << 20

type jsonConfig struct {
	maxSize int64
	strict  bool
}

// JSONOption configures the JSON binder.
type JSONOption func(*jsonConfig)

// WithMaxSize overrides DefaultMaxJSONSize.
func WithMaxSize(n int64) JSONOption {
	return func(c *jsonConfig) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// AllowUnknownFields accepts bodies with fields the target does not declare.
// Import endpoints use it to accept files produced by export.
func AllowUnknownFields() JSONOption {
	return func(c *jsonConfig) { c.strict = false }
}

// JSON creates a binder that decodes an application/json body.
// Requests without a body yield ErrBinderNotApplicable.
func JSON(opts ...JSONOption) func(r *http.Request, v any) error {
	cfg := jsonConfig{maxSize: DefaultMaxJSONSize, strict: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(r *http.Request, v any) error {
		if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
			return ErrBinderNotApplicable
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: got %s, expected application/json", ErrUnsupportedMediaType, contentType)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, cfg.maxSize+1))
		if err != nil {
			return errors.Join(ErrFailedToParseJSON, err)
		}
		if int64(len(body)) > cfg.maxSize {
			return fmt.Errorf("%w: max %d bytes", ErrBodyTooLarge, cfg.maxSize)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return ErrBinderNotApplicable
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		if cfg.strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(v); err != nil {
			return errors.Join(ErrFailedToParseJSON, err)
		}

		var extra json.RawMessage
		if err := dec.Decode(&extra); err != io.EOF {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON)
		}

		return nil
	}
}
