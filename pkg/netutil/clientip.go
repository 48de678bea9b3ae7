// Package netutil holds small HTTP networking helpers.
package netutil

import (
	"net"
	"net/http"
	"strings"
)

// ForwardedForHeader is the proxy header consulted before the peer address.
const ForwardedForHeader = "X-Forwarded-For"

// ClientIP returns the caller's address for audit records. The first entry of
// X-Forwarded-For wins when present; otherwise the transport peer address is
// used with its port removed.
//
// X-Forwarded-For is trusted as set by the fronting proxy. The value is only
// recorded, never used for access decisions.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get(ForwardedForHeader); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return stripPort(r.RemoteAddr)
}

// stripPort removes the port from host:port, leaving bare hosts (including
// unbracketed IPv6 literals) untouched.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
