package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// secretPattern matches a normalised base32 secret.
var secretPattern = regexp.MustCompile("^[A-Z2-7]+$")

var rawBase32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// NormalizeSecret upper-cases a secret and strips whitespace and padding.
func NormalizeSecret(secret string) string {
	secret = strings.ToUpper(strings.Join(strings.Fields(secret), ""))
	return strings.TrimRight(secret, "=")
}

// DecodeSecret normalises and base32-decodes a secret.
func DecodeSecret(secret string) ([]byte, error) {
	secret = NormalizeSecret(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if !secretPattern.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	key, err := rawBase32.DecodeString(secret)
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

// ValidateSecret reports whether secret is usable for code generation.
func ValidateSecret(secret string) error {
	_, err := DecodeSecret(secret)
	return err
}

// GenerateSecretKey returns a new random 160-bit secret, base32 encoded without padding.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return rawBase32.EncodeToString(secret), nil
}

// Counter returns the time step containing at.
func Counter(at time.Time, period int) uint64 {
	return uint64(at.Unix()) / uint64(period)
}

// Remaining returns the seconds left in the window containing at, in (0, period].
func Remaining(at time.Time, period int) int {
	return period - int(uint64(at.Unix())%uint64(period))
}

// Generate returns the code valid at the given time and the number of
// seconds left before it rotates.
func Generate(secret string, p Params, at time.Time) (string, int, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return "", 0, err
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return "", 0, err
	}

	code := HOTP(key, Counter(at, p.Period), p.Digits, p.Algorithm)
	return code, Remaining(at, p.Period), nil
}

// Verify checks code against the windows [counter-skew, counter+skew].
func Verify(code, secret string, p Params, at time.Time, skew int) (bool, error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return false, err
	}
	if skew < 0 {
		return false, ErrInvalidSkew
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return false, err
	}

	code = strings.TrimSpace(code)
	if len(code) != p.Digits {
		return false, nil
	}

	counter := Counter(at, p.Period)
	for i := -skew; i <= skew; i++ {
		if i < 0 && counter < uint64(-i) {
			continue
		}
		candidate := HOTP(key, counter+uint64(int64(i)), p.Digits, p.Algorithm)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

var pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000}

// HOTP computes an RFC 4226 code for the counter, left zero-padded to digits.
func HOTP(key []byte, counter uint64, digits int, alg Algorithm) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(alg.hash(), key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: the low nibble of the last byte selects a 31-bit window.
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", digits, value%pow10[digits])
}
