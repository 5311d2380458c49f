package clientip

import (
	"context"
	"net"
	"net/http"
	"strings"
)

var forwardHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// GetIP returns the normalised client address, or "" when none is valid.
func GetIP(r *http.Request) string {
	for _, h := range forwardHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		// X-Forwarded-For lists the client first.
		for candidate := range strings.SplitSeq(v, ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

type contextKey struct{}

func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Extract is FromContext in the (value, ok) shape used by audit extractors.
func Extract(ctx context.Context) (string, bool) {
	ip := FromContext(ctx)
	return ip, ip != ""
}

// Middleware stores the client address in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), GetIP(r))))
	})
}
