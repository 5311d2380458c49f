// Package requestid attaches a correlation id to every HTTP request.
//
// Middleware reuses a well-formed X-Request-ID header from the client or
// generates a UUIDv4, stores it in the request context and echoes it in the
// response. FromContext reads it back for log records and audit events.
package requestid
