package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Throttler counts a request against key and fails once the key is over its
// limit. The error for an exceeded limit must implement RetryAfter.
type Throttler interface {
	TrackRequest(ctx context.Context, key string) error
}

// RetryAfter is implemented by throttling errors that know when the window
// resets.
type RetryAfter interface {
	Seconds() int
}

// KeyExtractor is a function that extracts a unique key from the request
// for throttling purposes (e.g., IP address, user ID, email, etc.)
type KeyExtractor func(*http.Request) string

// IPKeyExtractor keys on the TCP peer address. Forwarding headers are
// ignored; behind a proxy use TrustedProxyIPKeyExtractor.
func IPKeyExtractor(r *http.Request) string {
	if addr, ok := peerAddr(r); ok {
		return addr.String()
	}
	return r.RemoteAddr
}

// ParseTrustedProxies accepts bare addresses and CIDR prefixes.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// TrustedProxyIPKeyExtractor honours X-Forwarded-For and X-Real-IP only when
// the peer is one of the trusted proxies. The client is the right-most
// X-Forwarded-For hop that is not itself trusted; hops left of it can be
// forged by the client and are never read.
func TrustedProxyIPKeyExtractor(trusted []netip.Prefix) KeyExtractor {
	isTrusted := func(a netip.Addr) bool {
		for _, p := range trusted {
			if p.Contains(a) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer, ok := peerAddr(r)
		if !ok {
			return r.RemoteAddr
		}
		if !isTrusted(peer) {
			return peer.String()
		}

		if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
			hops := strings.Split(strings.Join(xff, ","), ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				hop = hop.Unmap()
				if !isTrusted(hop) {
					return hop.String()
				}
			}
		}

		if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return xri.Unmap().String()
		}
		return peer.String()
	}
}

func peerAddr(r *http.Request) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

// UserIDKeyExtractor extracts the user ID from the request context.
// Returns empty string if no user ID is found.
func UserIDKeyExtractor(r *http.Request) string {
	if userID, ok := UserIDFromContext(r.Context()); ok {
		return userID
	}
	return ""
}

// CompositeKeyExtractor combines multiple key extractors with a separator.
// Example: CompositeKeyExtractor(":", IPKeyExtractor, UserIDKeyExtractor)
// would produce keys like "192.168.1.1:user123"
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// PrefixKeyExtractor namespaces keys so routes sharing a throttler keep
// separate counters.
func PrefixKeyExtractor(prefix string, inner KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		key := inner(r)
		if key == "" {
			return ""
		}
		return prefix + ":" + key
	}
}

// ThrottleConfig configures the Throttle middleware.
type ThrottleConfig struct {
	Throttler Throttler
	Key       KeyExtractor

	// IgnoreUserAgents lists case-insensitive substrings; matching clients
	// (health probes, internal crawlers) are never counted.
	IgnoreUserAgents []string
}

// Throttle counts every request against cfg.Throttler and answers 429 with a
// Retry-After header once the caller is over the limit.
func Throttle(cfg ThrottleConfig) Middleware {
	ignore := make([]string, 0, len(cfg.IgnoreUserAgents))
	for _, ua := range cfg.IgnoreUserAgents {
		if ua = strings.ToLower(strings.TrimSpace(ua)); ua != "" {
			ignore = append(ignore, ua)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			if ignoredAgent(r.UserAgent(), ignore) {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.Key(r)
			if key == "" {
				// If we can't extract a key, allow the request but log it
				log.Warn("throttle: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			err := cfg.Throttler.TrackRequest(ctx, key)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var ra RetryAfter
			if !errors.As(err, &ra) {
				// Backend trouble should not lock everyone out.
				log.Error("throttle: tracking failed, allowing request", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(ra.Seconds(), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			log.Warn("throttle limit exceeded",
				"key", key,
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again in " + strconv.Itoa(retryAfter) + " seconds.",
			})
		})
	}
}

func ignoredAgent(ua string, ignore []string) bool {
	if ua == "" || len(ignore) == 0 {
		return false
	}
	ua = strings.ToLower(ua)
	for _, s := range ignore {
		if strings.Contains(ua, s) {
			return true
		}
	}
	return false
}
