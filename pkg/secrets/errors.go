package secrets

import "errors"

var (
	ErrInvalidKey          = errors.New("invalid encryption key: must be 32 bytes")
	ErrEmptyPassphrase     = errors.New("encryption passphrase is empty")
	ErrKeyDerivationFailed = errors.New("key derivation failed")

	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
)
