package session

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72
	MinBcryptCost     = 10
)

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("otto:timing-equalizer"), MinBcryptCost)
	return h
})

// HashPassword hashes password with bcrypt. Costs below MinBcryptCost are raised.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), max(cost, MinBcryptCost))
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func burnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}

var errPasswordMismatch = errors.New("password mismatch")
