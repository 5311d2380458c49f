// Package binder fills request structs from HTTP requests.
//
// JSON decodes the body, Query reads `query:"name"` tags from the URL query
// string and Path reads `path:"name"` tags through a router-specific extractor
// (usually chi.URLParam). Binders only touch fields that carry their own tag,
// so one struct can combine all three:
//
//	type updateRequest struct {
//		ID         int64  `path:"id"`
//		Visibility string `json:"visibility"`
//	}
//
//	h := handler.Wrap(update, handler.WithBinders[handler.Context, updateRequest](
//		binder.Path(chi.URLParam),
//		binder.JSON(),
//	))
//
// Supported tag types are strings, integers, floats, booleans, time.Time
// (RFC 3339 or YYYY-MM-DD), pointers to those and slices of them.
package binder
