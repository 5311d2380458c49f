package users

import (
	"crypto/rand"
	"errors"
)

const (
	GeneratedPasswordLength = 16
	passwordCharset         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
)

// GeneratePassword returns a random password drawn uniformly from
// letters, digits and !@#$%^&*.
func GeneratePassword() (string, error) {
	// largest multiple of len(charset) that fits in a byte
	limit := byte(256 - 256%len(passwordCharset))

	out := make([]byte, 0, GeneratedPasswordLength)
	buf := make([]byte, GeneratedPasswordLength*2)
	for len(out) < GeneratedPasswordLength {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Join(ErrPasswordGeneration, err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, passwordCharset[int(b)%len(passwordCharset)])
			if len(out) == GeneratedPasswordLength {
				break
			}
		}
	}
	return string(out), nil
}
