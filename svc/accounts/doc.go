// Package accounts serves TOTP codes and manages the stored credentials.
//
// Every read path re-checks the access policy on each call: a missing
// account is otto.ErrNotFound, an existing but unreadable one is
// otto.ErrForbidden. Secrets are decrypted only inside the call that needs
// the plaintext and are never cached. A secret that fails to decrypt is an
// integrity fault: it is logged with the account id and surfaces as
// otto.ErrDecryption.
//
// Account references passed to GetCode are either a numeric id or a code
// "issuer:label" split on the first colon (otpauth.SplitLabel), matched
// case-insensitively; a code without a colon matches on the label alone
// whatever the issuer, while ":label" matches accounts with no issuer.
package accounts
