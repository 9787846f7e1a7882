package guard

import (
	"net/http"
	"strings"
)

// UnknownIP is used when no client address can be derived
const UnknownIP = "unknown"

// ClientIP derives the client address from proxy headers: the first entry
// of X-Forwarded-For, then X-Real-IP, then UnknownIP.
func ClientIP(h http.Header) string {
	if forwarded := h.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		if first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(h.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return UnknownIP
}
