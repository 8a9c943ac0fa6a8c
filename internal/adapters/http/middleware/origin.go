package middleware

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/RyanrealAF/Labcoat/internal/logging"
)

// UnknownOrigin is used when no header or peer address identifies the client.
const UnknownOrigin = "0.0.0.0"

type originKey struct{}

// Origin resolves the client from the peer address alone. Use
// NewOriginMiddleware to honor forwarding headers from trusted proxies.
func Origin(next http.Handler) http.Handler {
	return NewOriginMiddleware(nil)(next)
}

// NewOriginMiddleware resolves the client identifier once and stores it in the
// request context. CF-Connecting-IP, X-Forwarded-For and X-Real-IP are read
// only when the direct peer is inside one of the trusted prefixes.
func NewOriginMiddleware(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), originKey{}, extractIP(r, trusted))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OriginFromContext returns the origin stored by Origin, or UnknownOrigin.
func OriginFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(originKey{}).(string); ok && v != "" {
		return v
	}
	return UnknownOrigin
}

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = logging.NewID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

func extractIP(r *http.Request, trusted []netip.Prefix) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	peer := NormalizeOrigin(host)
	if peer == "" {
		peer = UnknownOrigin
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if cf := NormalizeOrigin(r.Header.Get("CF-Connecting-IP")); cf != "" {
		return cf
	}

	// Walk right to left: the nearest hop our proxies did not add is the client.
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		client := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := NormalizeOrigin(hops[i])
			if hop == "" {
				continue
			}
			client = hop
			if !isTrusted(hop, trusted) {
				break
			}
		}
		if client != "" {
			return client
		}
	}

	if realIP := NormalizeOrigin(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

// NormalizeOrigin returns the canonical text form of an address so that every
// consumer keys the same client identically. Non-IP values are lowercased.
func NormalizeOrigin(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if addr, err := netip.ParseAddr(strings.Trim(raw, "[]")); err == nil {
		return addr.Unmap().String()
	}
	return strings.ToLower(raw)
}

func isTrusted(origin string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(origin)
	if err != nil {
		return false
	}
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
