package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

const blobSeparator = ":"

// Cipher encrypts and decrypts strings with a fixed AES-256-GCM key.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a raw 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}

	return &Cipher{aead: aead}, nil
}

// NewFromString creates a Cipher from configuration input, see ParseKey.
func NewFromString(s string) (*Cipher, error) {
	key, err := ParseKey(s)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	return New(key)
}

// Encrypt seals plaintext under a fresh nonce and returns the hex blob.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, blobSeparator), nil
}

// Decrypt opens a blob produced by Encrypt.
// All failures are wrapped with ErrDecryptionFailed.
func (c *Cipher) Decrypt(blob string) (string, error) {
	nonce, tag, ciphertext, err := splitBlob(blob)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

func splitBlob(blob string) (nonce, tag, ciphertext []byte, err error) {
	parts := strings.Split(blob, blobSeparator)
	if len(parts) != 3 {
		return nil, nil, nil, ErrInvalidCiphertext
	}

	if nonce, err = hex.DecodeString(parts[0]); err != nil || len(nonce) != NonceSize {
		return nil, nil, nil, ErrInvalidCiphertext
	}
	if tag, err = hex.DecodeString(parts[1]); err != nil || len(tag) != TagSize {
		return nil, nil, nil, ErrInvalidCiphertext
	}
	if ciphertext, err = hex.DecodeString(parts[2]); err != nil {
		return nil, nil, nil, ErrInvalidCiphertext
	}

	return nonce, tag, ciphertext, nil
}
