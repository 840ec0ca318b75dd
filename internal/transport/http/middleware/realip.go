package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites r.RemoteAddr to the originating client when the direct
// peer is in trusted. X-Forwarded-For is walked right to left and the first
// hop outside trusted wins; X-Real-Ip is used when there is no
// X-Forwarded-For. Requests from any other peer are left untouched.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) > 0 {
				if peer, ok := parseHost(r.RemoteAddr); ok && isTrusted(peer, trusted) {
					if client, ok := forwardedClient(r.Header, trusted); ok {
						r.RemoteAddr = net.JoinHostPort(client.String(), "0")
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(h http.Header, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := h.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		var last netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				// A malformed hop ends the trusted chain.
				break
			}
			addr = addr.Unmap()
			last = addr
			if !isTrusted(addr, trusted) {
				return addr, true
			}
		}
		return last, last.IsValid()
	}
	if xr := strings.TrimSpace(h.Get("X-Real-Ip")); xr != "" {
		addr, err := netip.ParseAddr(xr)
		if err != nil {
			return netip.Addr{}, false
		}
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func parseHost(remoteAddr string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().Unmap(), true
	}
	addr, err := netip.ParseAddr(remoteAddr)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
