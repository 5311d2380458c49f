// Package otpauth parses and builds otpauth:// key URIs for TOTP accounts.
//
// The accepted shape is
//
//	otpauth://totp/<issuer>:<label>?secret=<base32>&issuer=<issuer>&algorithm=SHA1&digits=6&period=30
//
// The path is percent-decoded and split on its first colon only, so a label
// may itself contain colons ("Acme:ops:root" is issuer "Acme", label
// "ops:root"). SplitLabel exposes the same rule for callers that resolve
// "issuer:label" references, which keeps import and lookup consistent.
// The one exception is a path that starts with the issuer query parameter
// followed by a colon: that prefix is cut whole, so an issuer such as "a:b"
// built by Build parses back unchanged.
//
// When both the path prefix and the issuer query parameter are present the
// query parameter wins for display (Key.Issuer) while the path value is kept
// in Key.PathIssuer for matching.
//
// Build percent-encodes the issuer and label the same way encodeURIComponent
// does and always emits the query parameters in the order secret, issuer,
// algorithm, digits, period.
package otpauth
