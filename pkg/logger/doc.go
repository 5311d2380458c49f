// Package logger builds slog loggers for otto.
//
// New returns a *slog.Logger whose handler is wrapped so that request-scoped
// values (request id, authenticated username) are appended to every record
// from the context passed to the *Context logging methods. Attribute helpers
// keep key names consistent across packages.
package logger
