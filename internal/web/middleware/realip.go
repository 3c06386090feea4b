package middleware

// realip.go rewrites RemoteAddr from forwarding headers, but only for
// connections arriving from an operator-configured proxy. Rate limiting and
// the request log both key on RemoteAddr, so an untrusted client must never
// be able to pick its own address.

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// TrustedRealIP returns middleware that replaces RemoteAddr with the
// forwarded client address when, and only when, the connection comes from
// one of the given proxy networks. With no proxies configured it passes
// every request through untouched.
func TrustedRealIP(proxies []string) func(http.Handler) http.Handler {
	trusted := parseProxies(proxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if from := connAddr(r.RemoteAddr); from != nil && within(from, trusted) {
				if client := forwardedClient(r.Header); client != nil {
					r.RemoteAddr = client.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseProxies accepts CIDR blocks and bare addresses; bad entries are
// logged and skipped rather than failing startup.
func parseProxies(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			bits := 128
			if ip.To4() != nil {
				bits = 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		slog.Warn("ignoring invalid trusted proxy entry", "entry", entry)
	}
	return nets
}

// forwardedClient picks the original client address: X-Real-IP first, then
// the first hop of the X-Forwarded-For chain. Unparseable values are
// ignored so a garbage header cannot clear the address.
func forwardedClient(h http.Header) net.IP {
	if ip := net.ParseIP(strings.TrimSpace(h.Get("X-Real-IP"))); ip != nil {
		return ip
	}
	first, _, _ := strings.Cut(h.Get("X-Forwarded-For"), ",")
	return net.ParseIP(strings.TrimSpace(first))
}

// connAddr extracts the IP of the TCP peer from host:port or a bare host.
func connAddr(addr string) net.IP {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(addr)
}

func within(ip net.IP, nets []*net.IPNet) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
