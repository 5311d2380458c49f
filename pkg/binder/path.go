package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path creates a binder for `path:"name"` tagged fields. The extractor
// resolves a parameter by name; chi.URLParam fits directly.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrFailedToParsePath)
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a non-nil pointer to struct", ErrFailedToParsePath)
		}

		values := make(map[string][]string)
		rt := rv.Elem().Type()
		for i := range rt.NumField() {
			name, ok := fieldTag(rt.Field(i), "path")
			if !ok {
				continue
			}
			if value := extractor(r, name); value != "" {
				values[name] = []string{value}
			}
		}

		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
