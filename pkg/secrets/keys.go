package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/scrypt"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// NonceSize is the GCM nonce length used for every blob.
	NonceSize = 16

	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// scrypt parameters; the fixed salt is acceptable because the passphrase is
// treated as a high entropy server secret, not a user password.
const (
	kdfSalt = "salt"
	kdfN    = 1 << 14
	kdfR    = 8
	kdfP    = 1
)

// DeriveKey stretches a passphrase into a 32-byte key with scrypt.
func DeriveKey(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	key, err := scrypt.Key([]byte(passphrase), []byte(kdfSalt), kdfN, kdfR, kdfP, KeySize)
	if err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

// ParseKey resolves configuration input into key material.
// A 64 character hex string is used as a raw key, anything else is a passphrase.
func ParseKey(s string) ([]byte, error) {
	if len(s) == hex.EncodedLen(KeySize) {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}
	return DeriveKey(s)
}

// GenerateKey returns a new random 32-byte key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateEncodedKey returns a new random key hex encoded for configuration.
func GenerateEncodedKey() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
