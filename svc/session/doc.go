// Package session authenticates users by password and issues the signed
// session tokens carried by the web surface.
//
// Authenticate never tells an unknown username apart from a wrong password:
// both yield otto.ErrUnauthorized, and a bcrypt comparison runs in either
// case so response times match. Tokens are HS256 JWTs carrying the user id,
// username and role and expire after the configured TTL (24h by default).
package session
