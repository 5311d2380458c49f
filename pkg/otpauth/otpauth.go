package otpauth

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrymomot/otto/pkg/totp"
)

const (
	Scheme = "otpauth"
	Type   = "totp"
)

// Key holds the fields carried by a TOTP key URI.
type Key struct {
	Issuer     string         `json:"issuer"`
	PathIssuer string         `json:"-"`
	Label      string         `json:"label"`
	Secret     string         `json:"secret"`
	Algorithm  totp.Algorithm `json:"algorithm"`
	Digits     int            `json:"digits"`
	Period     int            `json:"period"`
}

// Params returns the code derivation parameters of the key.
func (k Key) Params() totp.Params {
	return totp.Params{Algorithm: k.Algorithm, Digits: k.Digits, Period: k.Period}
}

// SplitLabel splits "issuer:label" on the first colon.
// Surrounding whitespace is trimmed from both parts. hasIssuer reports
// whether a colon was present; without one the whole input is the label.
func SplitLabel(s string) (issuer, label string, hasIssuer bool) {
	before, after, found := strings.Cut(s, ":")
	if !found {
		return "", strings.TrimSpace(s), false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

// splitPath splits a decoded key URI path. When the issuer query parameter
// prefixes the path it is cut off whole, so issuers containing a colon
// survive; otherwise the path splits on its first colon.
func splitPath(path, queryIssuer string) (issuer, label string) {
	if n := len(queryIssuer); n > 0 && len(path) > n && path[n] == ':' &&
		strings.EqualFold(strings.TrimSpace(path[:n]), queryIssuer) {
		return strings.TrimSpace(path[:n]), strings.TrimSpace(path[n+1:])
	}
	issuer, label, _ = SplitLabel(path)
	return issuer, label
}

// Parse decodes a TOTP key URI.
func Parse(raw string) (Key, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Key{}, errors.Join(ErrInvalidURI, err)
	}
	if u.Scheme != Scheme {
		return Key{}, ErrInvalidScheme
	}
	if !strings.EqualFold(u.Host, Type) {
		return Key{}, ErrInvalidType
	}

	path, err := url.PathUnescape(strings.TrimPrefix(u.EscapedPath(), "/"))
	if err != nil {
		return Key{}, errors.Join(ErrInvalidURI, err)
	}

	q := u.Query()
	queryIssuer := strings.TrimSpace(q.Get("issuer"))

	pathIssuer, label := splitPath(path, queryIssuer)
	if label == "" {
		return Key{}, ErrMissingLabel
	}

	secret := totp.NormalizeSecret(q.Get("secret"))
	if secret == "" {
		return Key{}, ErrMissingSecret
	}
	if err := totp.ValidateSecret(secret); err != nil {
		return Key{}, errors.Join(ErrInvalidURI, err)
	}

	key := Key{
		Issuer:     pathIssuer,
		PathIssuer: pathIssuer,
		Label:      label,
		Secret:     secret,
	}
	if queryIssuer != "" {
		key.Issuer = queryIssuer
	}

	if key.Algorithm, err = totp.ParseAlgorithm(q.Get("algorithm")); err != nil {
		return Key{}, errors.Join(ErrInvalidURI, err)
	}
	if key.Digits, err = intParam(q, "digits", totp.DefaultDigits); err != nil {
		return Key{}, errors.Join(ErrInvalidURI, totp.ErrInvalidDigits, err)
	}
	if key.Period, err = intParam(q, "period", totp.DefaultPeriod); err != nil {
		return Key{}, errors.Join(ErrInvalidURI, totp.ErrInvalidPeriod, err)
	}
	if err := key.Params().Validate(); err != nil {
		return Key{}, errors.Join(ErrInvalidURI, err)
	}

	return key, nil
}

// Build encodes k as a TOTP key URI. Zero-valued parameters take the
// defaults; an empty issuer drops both the path prefix and the query parameter.
func Build(k Key) (string, error) {
	if strings.TrimSpace(k.Label) == "" {
		return "", ErrMissingLabel
	}
	secret := totp.NormalizeSecret(k.Secret)
	if secret == "" {
		return "", ErrMissingSecret
	}

	p := k.Params().WithDefaults()
	if err := p.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(Scheme + "://" + Type + "/")
	if k.Issuer != "" {
		b.WriteString(escape(k.Issuer))
		b.WriteByte(':')
	}
	b.WriteString(escape(k.Label))
	b.WriteString("?secret=")
	b.WriteString(secret)
	if k.Issuer != "" {
		b.WriteString("&issuer=")
		b.WriteString(escape(k.Issuer))
	}
	b.WriteString("&algorithm=")
	b.WriteString(p.Algorithm.String())
	b.WriteString("&digits=")
	b.WriteString(strconv.Itoa(p.Digits))
	b.WriteString("&period=")
	b.WriteString(strconv.Itoa(p.Period))

	return b.String(), nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

const upperhex = "0123456789ABCDEF"

// escape percent-encodes everything outside A-Z a-z 0-9 and -_.!~*'().
func escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
