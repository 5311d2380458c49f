package cookie

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

var ErrCookieNotFound = errors.New("cookie not found")

type Config struct {
	Name     string        `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	Path     string        `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"SESSION_COOKIE_DOMAIN"`
	Secure   bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	SameSite http.SameSite `env:"SESSION_COOKIE_SAMESITE" envDefault:"2"`
}

// Manager sets one named cookie.
type Manager struct {
	cfg Config
}

func New(cfg Config) *Manager {
	if cfg.Name == "" {
		cfg.Name = "session"
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	return &Manager{cfg: cfg}
}

// Name returns the cookie name.
func (m *Manager) Name() string { return m.cfg.Name }

// Set writes value with a Max-Age of ttl.
func (m *Manager) Set(w http.ResponseWriter, r *http.Request, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.Name,
		Value:    value,
		Path:     m.cfg.Path,
		Domain:   m.cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		Secure:   m.secure(r),
		HttpOnly: true,
		SameSite: m.cfg.SameSite,
	})
}

func (m *Manager) Get(r *http.Request) (string, error) {
	c, err := r.Cookie(m.cfg.Name)
	if err != nil || c.Value == "" {
		return "", ErrCookieNotFound
	}
	return c.Value, nil
}

// Delete expires the cookie.
func (m *Manager) Delete(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.Name,
		Value:    "",
		Path:     m.cfg.Path,
		Domain:   m.cfg.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.secure(r),
		HttpOnly: true,
		SameSite: m.cfg.SameSite,
	})
}

func (m *Manager) secure(r *http.Request) bool {
	if m.cfg.Secure {
		return true
	}
	if r == nil {
		return false
	}
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
