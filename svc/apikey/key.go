package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	Prefix     = "otto_"
	tokenBytes = 16
)

// Generate returns a new raw key.
func Generate() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Prefix + hex.EncodeToString(b), nil
}

// WellFormed reports whether raw has the shape produced by Generate.
func WellFormed(raw string) bool {
	body, ok := strings.CutPrefix(raw, Prefix)
	if !ok || len(body) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}
