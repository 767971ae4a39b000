package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseHTTP accepts absolute http(s) URLs with a host.
func ParseHTTP(raw string) (*url.URL, error) {
	return parseWithSchemes(raw, "http", "https")
}

// ParseProxy accepts the proxy schemes the outbound client can dial through.
func ParseProxy(raw string) (*url.URL, error) {
	return parseWithSchemes(raw, "http", "https", "socks5", "socks5h")
}

func parseWithSchemes(raw string, schemes ...string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty url")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", trimmed, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("url %q has no host", trimmed)
	}
	scheme := strings.ToLower(parsed.Scheme)
	for _, s := range schemes {
		if scheme == s {
			return parsed, nil
		}
	}
	return nil, fmt.Errorf("url %q: unsupported scheme %q", trimmed, parsed.Scheme)
}
