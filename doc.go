// Package otto is the domain model of a team-shared TOTP manager.
//
// It defines the records every layer passes around (Account, User, APIKey),
// the authenticated Principal, the closed Role and Visibility enums, and the
// error kinds services return and the HTTP layer maps to status codes.
//
// Packages are layered leaves first:
//
//	pkg/secrets   AES-256-GCM cipher for secrets at rest
//	pkg/totp      RFC 6238 code engine
//	pkg/otpauth   otpauth:// codec
//	svc/apikey    API key authority
//	svc/session   password authentication and session tokens
//	svc/policy    read/write decisions over accounts
//	svc/accounts  code retrieval and account lifecycle
//	modules/web   HTTP surface
package otto
