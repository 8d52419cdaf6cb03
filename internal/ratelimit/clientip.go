package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// GetClientIP returns the caller's address. With trustProxy it prefers the rightmost public hop in
// X-Forwarded-For, then X-Real-IP. Otherwise only RemoteAddr counts.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if hop := rightmostPublic(r.Header.Get("X-Forwarded-For")); hop != "" {
			return hop
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// rightmostPublic walks the chain from the nearest proxy outward. When every hop is internal the
// nearest one is returned.
func rightmostPublic(xff string) string {
	if strings.TrimSpace(xff) == "" {
		return ""
	}
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			continue
		}
		if !internal(addr) {
			return hop
		}
	}
	return strings.TrimSpace(hops[len(hops)-1])
}

func internal(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
