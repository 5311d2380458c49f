// Package cookie writes and reads the session cookie.
//
// The cookie value is an already signed session token, so the manager only
// owns transport attributes: HttpOnly always, SameSite=Lax by default, and
// Secure when configured or when the request arrived over TLS (directly or
// via X-Forwarded-Proto).
package cookie
