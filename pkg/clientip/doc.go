// Package clientip resolves the originating client address of a request.
//
// Proxy headers are consulted in order (CF-Connecting-IP, X-Forwarded-For,
// X-Real-IP) before falling back to RemoteAddr. Only syntactically valid
// addresses are returned. The address keys login throttling and is recorded
// on audit events.
package clientip
