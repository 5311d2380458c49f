// Package web serves the JSON API.
//
// Two surfaces share one chi router:
//
//   - /api/... is used by the browser client. The caller is identified by
//     the signed session token in the "session" cookie set at login.
//   - /api/v1/... is used by scripts and integrations. The caller presents
//     an API key as "Authorization: Bearer otto_...". Keys are issued to
//     admins only.
//
// Handlers are thin: they bind the request, call one service method with
// the principal from the request context and render the result. Errors go
// through handler.NewErrorHandler, which maps the otto error kinds to HTTP
// statuses.
//
// Router assembles the surfaces from RouterOptions; every part is optional
// and only mounted when set:
//
//	r := web.Router(web.RouterOptions{
//		Auth:     web.NewAuthHandler(sessions, cookies, limiter, errh),
//		Accounts: web.NewAccountsHandler(accountsSvc, errh),
//		API:      web.NewAPIHandler(accountsSvc, errh),
//		Guard:    web.NewAuthenticator(sessions, keys, cookies, errh),
//	})
package web
