package network

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	IPStackDefault = "default"
	IPStackIPv4    = "ipv4"
	IPStackIPv6    = "ipv6"

	dialTimeout = 10 * time.Second
)

// ProxyProvider provides proxy configuration.
type ProxyProvider interface {
	GetProxyURL(ctx context.Context) string
}

// IPStackProvider reports which address family outbound connections should prefer.
type IPStackProvider interface {
	GetIPStack(ctx context.Context) string
}

// StaticProvider serves a fixed proxy URL and IP stack, typically read from config at startup.
type StaticProvider struct {
	ProxyURL string
	IPStack  string
}

func (p StaticProvider) GetProxyURL(ctx context.Context) string {
	return p.ProxyURL
}

func (p StaticProvider) GetIPStack(ctx context.Context) string {
	if p.IPStack == "" {
		return IPStackDefault
	}
	return p.IPStack
}

// ClientFactory creates HTTP clients with proxy and IP stack configuration.
type ClientFactory struct {
	proxyProvider   ProxyProvider
	ipStackProvider IPStackProvider
	testHTTPClient  *http.Client // For testing only
}

// NewClientFactory creates a new client factory.
func NewClientFactory(proxyProvider ProxyProvider, ipStackProvider IPStackProvider) *ClientFactory {
	if proxyProvider == nil {
		proxyProvider = &noopProvider{}
	}
	if ipStackProvider == nil {
		ipStackProvider = &noopProvider{}
	}
	return &ClientFactory{proxyProvider: proxyProvider, ipStackProvider: ipStackProvider}
}

// NewClientFactoryForTest creates a client factory that uses the given http.Client for testing.
// This is only for use in tests.
func NewClientFactoryForTest(client *http.Client) *ClientFactory {
	return &ClientFactory{
		proxyProvider:   &noopProvider{},
		ipStackProvider: &noopProvider{},
		testHTTPClient:  client,
	}
}

// noopProvider returns no proxy and the default IP stack.
type noopProvider struct{}

func (p *noopProvider) GetProxyURL(ctx context.Context) string {
	return ""
}

func (p *noopProvider) GetIPStack(ctx context.Context) string {
	return IPStackDefault
}

// NewHTTPClient creates a standard http.Client with proxy configuration.
func (f *ClientFactory) NewHTTPClient(ctx context.Context, timeout time.Duration) *http.Client {
	// For testing: return the injected client
	if f.testHTTPClient != nil {
		return f.testHTTPClient
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: f.NewHTTPTransport(ctx),
	}
}

// GetProxyURL returns the current proxy URL.
func (f *ClientFactory) GetProxyURL(ctx context.Context) string {
	return f.proxyProvider.GetProxyURL(ctx)
}

// NewHTTPTransport creates an http.Transport honouring the configured proxy and IP stack.
// HTTP(S) proxies go through Transport.Proxy; SOCKS5 proxies replace the dialer.
func (f *ClientFactory) NewHTTPTransport(ctx context.Context) *http.Transport {
	ipStack := f.ipStackProvider.GetIPStack(ctx)
	transport := &http.Transport{
		DialContext:           f.makeDialFunc(ipStack),
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	proxyURL := f.proxyProvider.GetProxyURL(ctx)
	if proxyURL == "" {
		return transport
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Host == "" {
		return transport
	}

	switch strings.ToLower(parsed.Scheme) {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{User: parsed.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, &ipStackDialer{ipStack: ipStack})
		if err != nil {
			return transport
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		}
	default:
		transport.Proxy = http.ProxyURL(parsed)
	}

	return transport
}

func (f *ClientFactory) makeDialFunc(ipStack string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialWithIPStack(ctx, network, addr, ipStack)
	}
}

func dialWithIPStack(ctx context.Context, network, addr, ipStack string) (net.Conn, error) {
	switch ipStack {
	case IPStackIPv4:
		return dialWithPreference(ctx, addr, "tcp4", "tcp6")
	case IPStackIPv6:
		return dialWithPreference(ctx, addr, "tcp6", "tcp4")
	default:
		d := &net.Dialer{Timeout: dialTimeout}
		return d.DialContext(ctx, network, addr)
	}
}

// dialWithPreference tries the primary family first and falls back to the other one.
func dialWithPreference(ctx context.Context, addr, primary, fallback string) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, primary, addr)
	if err == nil {
		return conn, nil
	}
	conn, fallbackErr := d.DialContext(ctx, fallback, addr)
	if fallbackErr == nil {
		return conn, nil
	}
	return nil, errors.Join(err, fallbackErr)
}

// ipStackDialer adapts dialWithIPStack to proxy.Dialer for the SOCKS5 forward hop.
type ipStackDialer struct {
	ipStack string
}

func (d *ipStackDialer) Dial(network, addr string) (net.Conn, error) {
	return dialWithIPStack(context.Background(), network, addr, d.ipStack)
}

func (d *ipStackDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return dialWithIPStack(ctx, network, addr, d.ipStack)
}
