package app

import (
	"net/url"
	"strings"
)

// extractOriginHost reduces an Origin header value to its host[:port] part so
// allowed_origins entries can be written without a scheme.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

// matchOriginPattern matches a request host against an allowed_origins entry.
// Besides exact hosts, two wildcard forms are understood: "*.gagikpog.ru"
// covers any subdomain, and "localhost:*" covers any port.
func matchOriginPattern(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
