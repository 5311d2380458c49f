// Package qrcode renders otpauth URIs as PNG QR codes for authenticator apps.
//
// DataURL returns an image ready for an <img src> attribute, which is how
// the account QR endpoint ships codes to the browser.
package qrcode
