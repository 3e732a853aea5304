package httputil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

type ctxKey int

const nonceKey ctxKey = iota

// NewNonce returns a fresh base64url value for the CSP script-src and
// style-src nonces of one response.
func NewNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("httputil: nonce generation failed", "error", err)
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func WithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, nonceKey, nonce)
}

// Nonce returns the nonce stored by WithNonce, or "" outside the security
// middleware.
func Nonce(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey).(string)
	return nonce
}

// ClientIP prefers the first X-Forwarded-For hop and otherwise strips the
// port from RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
