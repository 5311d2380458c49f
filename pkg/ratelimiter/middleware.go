package ratelimiter

import (
	"net/http"
	"strconv"
	"time"
)

// KeyFunc extracts a rate limit key from a request. An empty key bypasses
// the limiter.
type KeyFunc func(r *http.Request) string

// DenyFunc writes the response for a rejected or failed request. err is nil
// when the limit was exceeded.
type DenyFunc func(w http.ResponseWriter, r *http.Request, res Result, err error)

func defaultDeny(w http.ResponseWriter, _ *http.Request, _ Result, err error) {
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

// Middleware counts every request against l.
func Middleware(l *Limiter, keyFunc KeyFunc, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = defaultDeny
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				deny(w, r, res, err)
				return
			}

			SetHeaders(w, res)
			if !res.Allowed() {
				deny(w, r, res, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetHeaders writes X-RateLimit-* headers, plus Retry-After when res was denied.
func SetHeaders(w http.ResponseWriter, res Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if retry := res.RetryAfter(time.Now()); retry > 0 {
		h.Set("Retry-After", strconv.Itoa(max(1, int(retry.Round(time.Second).Seconds()))))
	}
}
