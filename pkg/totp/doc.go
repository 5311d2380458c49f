// Package totp implements RFC 6238 time-based one-time passwords on top of
// the RFC 4226 HOTP construction.
//
// Secrets are base32 strings as found in otpauth URIs. They are normalised
// (trimmed, upper-cased, spaces and padding removed) and decoded before use;
// a secret that does not decode is rejected with ErrInvalidSecret rather than
// silently producing a wrong code.
//
// Supported parameters are HMAC-SHA1, HMAC-SHA256 and HMAC-SHA512, 6 to 8
// digits and periods between 15 and 60 seconds. Zero values fall back to the
// common defaults (SHA1, 6 digits, 30 seconds).
//
// # Usage
//
//	code, remaining, err := totp.Generate(secret, totp.Params{}, time.Now())
//	ok, err := totp.Verify(input, secret, totp.Params{}, time.Now(), totp.DefaultSkew)
//
// Generate is a pure function of its inputs, so codes are never cached.
package totp
