// Package privacy truncates client addresses before they reach the logs.
package privacy

import (
	"fmt"
	"net"
)

// AnonymizeIP keeps the /24 of an IPv4 address or the /48 of an IPv6 address.
// It returns "unknown" for empty input and "invalid" for anything unparseable.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}

// AnonymizeRemoteAddr accepts an http.Request.RemoteAddr ("host:port" or bare host).
func AnonymizeRemoteAddr(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return AnonymizeIP(host)
	}
	return AnonymizeIP(remoteAddr)
}
