package urlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHTTP(t *testing.T) {
	u, err := ParseHTTP(" https://api.jdoodle.com/v1/execute ")
	require.NoError(t, err)
	require.Equal(t, "api.jdoodle.com", u.Host)

	for _, raw := range []string{"", "api.jdoodle.com/v1", "ftp://example.com", "socks5://127.0.0.1:1080", "http://"} {
		_, err := ParseHTTP(raw)
		require.Error(t, err, "input %q", raw)
	}
}

func TestParseProxy(t *testing.T) {
	for _, raw := range []string{"socks5://127.0.0.1:1080", "SOCKS5H://proxy:1080", "http://proxy:8080"} {
		_, err := ParseProxy(raw)
		require.NoError(t, err, "input %q", raw)
	}

	_, err := ParseProxy("gopher://proxy:70")
	require.Error(t, err)
}
