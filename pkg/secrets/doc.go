// Package secrets encrypts TOTP shared secrets at rest.
//
// A Cipher wraps AES-256 in GCM mode with a 16-byte random nonce drawn for
// every encryption. The key is either supplied raw (32 bytes, hex encoded in
// configuration) or derived once from a passphrase with scrypt.
//
// Ciphertext blobs are colon-delimited hex:
//
//	hex(nonce) ":" hex(tag) ":" hex(ciphertext)
//
// Every decryption failure, whether a malformed blob, a tag mismatch or a
// wrong key, is reported as ErrDecryptionFailed so callers can treat it as a
// single integrity fault.
//
// # Usage
//
//	c, err := secrets.NewFromString(os.Getenv("ENCRYPTION_KEY"))
//	if err != nil {
//		// handle error
//	}
//
//	blob, err := c.Encrypt("JBSWY3DPEHPK3PXP")
//	plain, err := c.Decrypt(blob)
package secrets
