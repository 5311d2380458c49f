package binder

import "net/http"

// Query creates a binder for `query:"name"` tagged fields.
// Slices accept repeated keys (?tag=a&tag=b) and comma-separated values.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}
